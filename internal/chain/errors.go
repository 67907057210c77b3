package chain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the node has no such block or transaction.
	ErrNotFound = errors.New("not found")

	// ErrExecutionReverted is matched by errors from reverted eth_call requests.
	ErrExecutionReverted = errors.New("execution reverted")

	// ErrUnavailable wraps transport failures that persisted through retries.
	ErrUnavailable = errors.New("rpc unavailable")
)

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Is reports revert errors as ErrExecutionReverted. Nodes signal a revert
// with code 3 (revert data attached) or a "reverted" message.
func (e *RPCError) Is(target error) bool {
	if target != ErrExecutionReverted {
		return false
	}
	if e.Code == 3 {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "revert") || strings.Contains(msg, "invalid opcode")
}

// IsReverted reports whether err is a contract revert.
func IsReverted(err error) bool {
	return errors.Is(err, ErrExecutionReverted)
}
