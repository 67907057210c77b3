package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"core-indexer/internal/app"
	"core-indexer/internal/config"
	"core-indexer/internal/logging"
	"core-indexer/internal/replay"
	"core-indexer/internal/verification"
)

func main() {
	cfg, err := config.Load("replay", ".env", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.ArchivePath == "" {
		logger.Fatal("--archive is required")
	}
	if err := cfg.ValidateChain(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("replay failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	f, err := os.Open(cfg.ArchivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if _, err := store.GetCursor(ctx); err == nil {
		logger.Warn("store already has a cursor, replaying on top of existing entities")
	}

	ix, err := app.NewIndexer(ctx, cfg, app.NewChainClient(cfg, logger), store, logger)
	if err != nil {
		return err
	}

	result, err := replay.NewRunner(replay.Options{
		Indexer:     ix,
		BatchBlocks: cfg.ChunkSize,
		FromBlock:   cfg.StartBlock,
		Logger:      logger,
	}).Run(ctx, f)
	if err != nil {
		return err
	}
	logger.Info("replay complete",
		zap.Int("logs", result.Logs),
		zap.Int("batches", result.Batches),
		zap.Uint64("last_block", result.LastBlock),
		zap.Duration("duration", result.Duration),
	)

	report, err := verification.New(store, verification.Options{Logger: logger}).Verify(ctx)
	if err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("replayed store has %d violations", len(report.Violations))
	}
	return nil
}
