// Package replay rebuilds an entity store from an archive of logs written
// during indexing. Contract reads still go to the chain at the archived
// block heights; only log discovery is skipped.
package replay

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"core-indexer/internal/chain"
	"core-indexer/internal/indexer"
	"core-indexer/internal/ingestion"
)

// Options configures a Runner.
type Options struct {
	Indexer     *indexer.Indexer
	BatchBlocks uint64 // blocks per committed batch. Default: 1000
	FromBlock   uint64 // archived logs below this block are ignored
	Logger      *zap.Logger
}

// Runner replays archived logs through an indexer.
type Runner struct {
	indexer     *indexer.Indexer
	batchBlocks uint64
	fromBlock   uint64
	logger      *zap.Logger
}

// NewRunner creates a replay runner.
func NewRunner(opts Options) *Runner {
	batchBlocks := opts.BatchBlocks
	if batchBlocks == 0 {
		batchBlocks = 1000
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		indexer:     opts.Indexer,
		batchBlocks: batchBlocks,
		fromBlock:   opts.FromBlock,
		logger:      logger,
	}
}

// Result contains statistics from a replay.
type Result struct {
	Logs      int
	Batches   int
	Applied   int
	Failed    int
	Skipped   int
	LastBlock uint64
	Duration  time.Duration
}

// Run replays every log in r. Logs must be in chain order; a batch is
// committed whenever it spans BatchBlocks blocks and at the end.
func (r *Runner) Run(ctx context.Context, archive io.Reader) (*Result, error) {
	start := time.Now()
	result := &Result{}

	var (
		batch      *indexer.Batch
		batchStart uint64
		prev       *chain.Log
	)
	commit := func(block uint64) error {
		if batch == nil {
			return nil
		}
		if err := batch.Commit(ctx, block); err != nil {
			return err
		}
		s := batch.Stats()
		result.Batches++
		result.Applied += s.Applied
		result.Failed += s.Failed
		result.Skipped += s.Skipped
		result.LastBlock = block
		batch = nil
		return nil
	}

	err := ingestion.ReadArchive(ctx, archive, func(l chain.Log) error {
		if l.Raw.BlockNumber < r.fromBlock {
			return nil
		}
		if prev != nil && !prev.Less(l) {
			return fmt.Errorf("%w: %d/%d/%d after %d/%d/%d", ErrInvalidOrdering,
				l.Raw.BlockNumber, l.Raw.TxIndex, l.Raw.Index,
				prev.Raw.BlockNumber, prev.Raw.TxIndex, prev.Raw.Index)
		}
		if batch != nil && l.Raw.BlockNumber >= batchStart+r.batchBlocks {
			if err := commit(prev.Raw.BlockNumber); err != nil {
				return err
			}
		}
		if batch == nil {
			batch = r.indexer.NewBatch()
			batchStart = l.Raw.BlockNumber
		}
		if _, err := batch.Apply(ctx, l); err != nil {
			return err
		}
		result.Logs++
		prev = &l
		return nil
	})
	if err != nil {
		return result, err
	}
	if prev != nil {
		if err := commit(prev.Raw.BlockNumber); err != nil {
			return result, err
		}
	}

	result.Duration = time.Since(start)
	r.logger.Info("replay complete",
		zap.Int("logs", result.Logs),
		zap.Int("batches", result.Batches),
		zap.Int("applied", result.Applied),
		zap.Int("failed", result.Failed),
		zap.Uint64("last_block", result.LastBlock),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}
