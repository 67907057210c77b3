package ingestion

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"core-indexer/internal/chain"
)

const defaultTimestampCacheSize = 4096

// RPCLogSource fetches logs via eth_getLogs and attaches block timestamps,
// which are cached since consecutive logs usually share a block.
type RPCLogSource struct {
	client chain.Client
	times  *lru.Cache
	logger *zap.Logger
}

// RPCLogSourceOptions configures an RPCLogSource.
type RPCLogSourceOptions struct {
	CacheSize int
	Logger    *zap.Logger
}

// NewRPCLogSource creates a log source over client.
func NewRPCLogSource(client chain.Client, opts RPCLogSourceOptions) (*RPCLogSource, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = defaultTimestampCacheSize
	}
	times, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create timestamp cache: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RPCLogSource{client: client, times: times, logger: logger}, nil
}

// FetchLogs implements LogSource.
func (s *RPCLogSource) FetchLogs(ctx context.Context, from, to uint64, addresses []common.Address, topics []common.Hash) ([]chain.Log, error) {
	if len(addresses) == 0 || from > to {
		return nil, nil
	}
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: addresses,
	}
	if len(topics) > 0 {
		q.Topics = [][]common.Hash{topics}
	}
	raw, err := s.client.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("get logs %d-%d: %w", from, to, err)
	}

	logs := make([]chain.Log, 0, len(raw))
	for _, r := range raw {
		ts, err := s.blockTime(ctx, r.BlockNumber)
		if err != nil {
			return nil, err
		}
		logs = append(logs, chain.Log{Raw: r, Timestamp: ts})
	}
	s.logger.Debug("fetched logs",
		zap.Uint64("from", from),
		zap.Uint64("to", to),
		zap.Int("addresses", len(addresses)),
		zap.Int("logs", len(logs)),
	)
	return logs, nil
}

// LatestBlock implements LogSource.
func (s *RPCLogSource) LatestBlock(ctx context.Context) (uint64, error) {
	return s.client.BlockNumber(ctx)
}

func (s *RPCLogSource) blockTime(ctx context.Context, number uint64) (uint64, error) {
	if v, ok := s.times.Get(number); ok {
		return v.(uint64), nil
	}
	block, err := s.client.BlockByNumber(ctx, number)
	if err != nil {
		return 0, fmt.Errorf("get block %d: %w", number, err)
	}
	ts := uint64(block.Timestamp)
	s.times.Add(number, ts)
	return ts, nil
}

var _ LogSource = (*RPCLogSource)(nil)
