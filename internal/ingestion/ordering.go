package ingestion

import (
	"errors"
	"sort"

	"core-indexer/internal/chain"
)

// ErrInvalidOrdering is returned when logs are not properly ordered.
var ErrInvalidOrdering = errors.New("logs are not in deterministic order")

// SortLogs orders logs by (block ASC, tx index ASC, log index ASC).
func SortLogs(logs []chain.Log) {
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Less(logs[j])
	})
}

// ValidateLogOrdering checks that logs are strictly ordered.
// Returns ErrInvalidOrdering if not.
func ValidateLogOrdering(logs []chain.Log) error {
	for i := 1; i < len(logs); i++ {
		if !logs[i-1].Less(logs[i]) {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// MergeLogs merges two ordered slices into a new ordered slice. A log present
// in both (same position) is kept once.
func MergeLogs(a, b []chain.Log) []chain.Log {
	out := make([]chain.Log, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Less(b[j]):
			out = append(out, a[i])
			i++
		case b[j].Less(a[i]):
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// After returns the logs positioned strictly after pos.
func After(logs []chain.Log, pos chain.Position) []chain.Log {
	out := logs[:0:0]
	for _, l := range logs {
		if comparePositions(l.Position(), pos) > 0 {
			out = append(out, l)
		}
	}
	return out
}

// comparePositions returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func comparePositions(a, b chain.Position) int {
	if a.Block != b.Block {
		if a.Block < b.Block {
			return -1
		}
		return 1
	}
	if a.TxIndex != b.TxIndex {
		if a.TxIndex < b.TxIndex {
			return -1
		}
		return 1
	}
	if a.LogIndex != b.LogIndex {
		if a.LogIndex < b.LogIndex {
			return -1
		}
		return 1
	}
	return 0
}
