package replay

import "errors"

// ErrInvalidOrdering is returned when archived logs are not in chain order.
var ErrInvalidOrdering = errors.New("archived logs are not in deterministic order")
