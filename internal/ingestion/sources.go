package ingestion

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"core-indexer/internal/chain"
)

// LogSource provides raw logs with their block timestamps.
type LogSource interface {
	// FetchLogs returns logs emitted by addresses with topic0 in topics
	// within blocks [from, to] (inclusive). Logs may be unordered; callers
	// sort them with SortLogs.
	FetchLogs(ctx context.Context, from, to uint64, addresses []common.Address, topics []common.Hash) ([]chain.Log, error)

	// LatestBlock returns the chain head.
	LatestBlock(ctx context.Context) (uint64, error)
}
