package ingestion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"core-indexer/internal/chain"
	"core-indexer/internal/observability"
)

// Follower keeps the store at head minus a confirmation depth. It wakes on
// websocket heads when a subscriber is configured and polls otherwise.
type Follower struct {
	source        LogSource
	heads         chain.HeadSubscriber
	backfiller    *Backfiller
	confirmations uint64
	pollInterval  time.Duration
	logger        *zap.Logger
}

// FollowerOptions contains configuration for creating a Follower.
type FollowerOptions struct {
	Source        LogSource
	Heads         chain.HeadSubscriber // optional
	Backfiller    *Backfiller
	Confirmations uint64
	PollInterval  time.Duration // Default: 12s
	Logger        *zap.Logger
}

// NewFollower creates a new follower.
func NewFollower(opts FollowerOptions) *Follower {
	pollInterval := opts.PollInterval
	if pollInterval == 0 {
		pollInterval = 12 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Follower{
		source:        opts.Source,
		heads:         opts.Heads,
		backfiller:    opts.Backfiller,
		confirmations: opts.Confirmations,
		pollInterval:  pollInterval,
		logger:        logger,
	}
}

// Run indexes from block next onwards until ctx is cancelled or indexing
// fails. It returns the next block still to be indexed.
func (f *Follower) Run(ctx context.Context, next uint64) (uint64, error) {
	var headsCh <-chan chain.Head
	if f.heads != nil {
		ch, err := f.heads.SubscribeNewHeads(ctx)
		if err != nil {
			f.logger.Warn("head subscription failed, polling", zap.Error(err))
		} else {
			headsCh = ch
		}
	}

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	f.logger.Info("follower started",
		zap.Uint64("next", next),
		zap.Uint64("confirmations", f.confirmations),
		zap.Duration("poll_interval", f.pollInterval),
		zap.Bool("websocket", headsCh != nil),
	)

	// Catch up once before waiting for the first head.
	next, err := f.poll(ctx, next)
	if err != nil {
		return next, err
	}

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("follower stopping", zap.Uint64("next", next))
			return next, ctx.Err()

		case head, ok := <-headsCh:
			if !ok {
				f.logger.Warn("head subscription closed, polling")
				headsCh = nil
				continue
			}
			next, err = f.advance(ctx, next, head.Number)

		case <-ticker.C:
			next, err = f.poll(ctx, next)
		}
		if err != nil {
			return next, err
		}
	}
}

func (f *Follower) poll(ctx context.Context, next uint64) (uint64, error) {
	head, err := f.source.LatestBlock(ctx)
	if err != nil {
		f.logger.Warn("get latest block", zap.Error(err))
		return next, nil
	}
	return f.advance(ctx, next, head)
}

// advance indexes up to the last confirmed block below head.
func (f *Follower) advance(ctx context.Context, next, head uint64) (uint64, error) {
	observability.UpdateHeadBlock(head)
	if head < f.confirmations {
		return next, nil
	}
	safe := head - f.confirmations
	if safe < next {
		return next, nil
	}
	if _, err := f.backfiller.Run(ctx, next, safe); err != nil {
		return next, err
	}
	return safe + 1, nil
}
