package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"core-indexer/internal/indexer"
)

const defaultChunkSize = 2000

// Backfiller indexes a block range in chunks. Every chunk is one batch
// committed with its last block as the cursor.
type Backfiller struct {
	source    LogSource
	indexer   *indexer.Indexer
	archive   *ArchiveWriter
	chunkSize uint64
	logger    *zap.Logger
}

// BackfillOptions contains configuration for creating a Backfiller.
type BackfillOptions struct {
	Source    LogSource
	Indexer   *indexer.Indexer
	Archive   *ArchiveWriter // optional
	ChunkSize uint64
	Logger    *zap.Logger
}

// NewBackfiller creates a new backfiller.
func NewBackfiller(opts BackfillOptions) *Backfiller {
	chunkSize := opts.ChunkSize
	if chunkSize == 0 {
		chunkSize = defaultChunkSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backfiller{
		source:    opts.Source,
		indexer:   opts.Indexer,
		archive:   opts.Archive,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// BackfillResult contains statistics from a backfill operation.
type BackfillResult struct {
	Chunks   int
	Logs     int
	Applied  int
	Failed   int
	Skipped  int
	Tracked  int
	Duration time.Duration
}

func (r *BackfillResult) add(logs int, s indexer.BatchStats) {
	r.Chunks++
	r.Logs += logs
	r.Applied += s.Applied
	r.Failed += s.Failed
	r.Skipped += s.Skipped
	r.Tracked += s.Tracked
}

// Run indexes blocks [from, to] (inclusive).
func (b *Backfiller) Run(ctx context.Context, from, to uint64) (*BackfillResult, error) {
	start := time.Now()
	result := &BackfillResult{}
	if from > to {
		return result, nil
	}

	b.logger.Info("backfill started", zap.Uint64("from", from), zap.Uint64("to", to))
	for lo := from; lo <= to; {
		hi := lo + b.chunkSize - 1
		if hi > to || hi < lo {
			hi = to
		}
		logs, stats, err := b.processChunk(ctx, lo, hi)
		if err != nil {
			return result, err
		}
		result.add(logs, stats)
		if hi == to {
			break
		}
		lo = hi + 1
	}

	result.Duration = time.Since(start)
	b.logger.Info("backfill complete",
		zap.Uint64("from", from),
		zap.Uint64("to", to),
		zap.Int("chunks", result.Chunks),
		zap.Int("logs", result.Logs),
		zap.Int("applied", result.Applied),
		zap.Int("failed", result.Failed),
		zap.Int("tracked", result.Tracked),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// processChunk applies the logs of [from, to] in order. When a handler starts
// tracking an address, that address's logs for the rest of the chunk are
// fetched and merged behind the current log.
func (b *Backfiller) processChunk(ctx context.Context, from, to uint64) (int, indexer.BatchStats, error) {
	topics := b.indexer.Topics()
	queue, err := b.source.FetchLogs(ctx, from, to, b.indexer.Book().Addresses(), topics)
	if err != nil {
		return 0, indexer.BatchStats{}, err
	}
	SortLogs(queue)

	batch := b.indexer.NewBatch()
	for i := 0; i < len(queue); i++ {
		l := queue[i]
		added, err := batch.Apply(ctx, l)
		if err != nil {
			return 0, indexer.BatchStats{}, err
		}
		if len(added) == 0 {
			continue
		}

		addrs := make([]common.Address, len(added))
		for k, t := range added {
			addrs[k] = common.HexToAddress(t.Address)
		}
		extra, err := b.source.FetchLogs(ctx, l.Raw.BlockNumber, to, addrs, topics)
		if err != nil {
			return 0, indexer.BatchStats{}, fmt.Errorf("fetch logs of new addresses: %w", err)
		}
		SortLogs(extra)
		extra = After(extra, l.Position())
		if len(extra) > 0 {
			queue = append(queue[: i+1 : i+1], MergeLogs(queue[i+1:], extra)...)
		}
		b.logger.Debug("tracking new addresses",
			zap.Int("addresses", len(addrs)),
			zap.Uint64("block", l.Raw.BlockNumber),
			zap.Int("logs", len(extra)),
		)
	}

	if err := batch.Commit(ctx, to); err != nil {
		return 0, indexer.BatchStats{}, err
	}
	if b.archive != nil {
		if err := b.archive.Write(queue); err != nil {
			return 0, indexer.BatchStats{}, err
		}
	}
	return len(queue), batch.Stats(), nil
}
