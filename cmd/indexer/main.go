package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"core-indexer/internal/api"
	"core-indexer/internal/app"
	"core-indexer/internal/chain"
	"core-indexer/internal/config"
	"core-indexer/internal/ingestion"
	"core-indexer/internal/logging"
	"core-indexer/internal/verification"
)

func main() {
	cfg, err := config.Load("indexer", ".env", os.Args[1:])
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

	if err := cfg.ValidateChain(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", zap.Stringer("signal", sig))
		case <-done:
			return
		}
		cancel()

		select {
		case sig := <-sigCh:
			logger.Error("received second signal, forcing exit", zap.Stringer("signal", sig))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, cfg, logger)
	close(done)
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("indexer stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	client := app.NewChainClient(cfg, logger)
	ix, err := app.NewIndexer(ctx, cfg, client, store, logger)
	if err != nil {
		return err
	}

	next, err := ix.Resume(ctx, cfg.StartBlock)
	if err != nil {
		return err
	}

	server := api.New(api.Options{Store: store, Tracked: ix.Book(), Logger: logger})
	httpSrv := startHTTPServer(cfg.HTTPAddr, server, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	if cfg.VerifySchedule != "" {
		verifier := verification.New(store, verification.Options{Logger: logger})
		scheduler, err := app.ScheduleVerification(ctx, cfg.VerifySchedule, verifier, server, logger)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
	}

	source, err := ingestion.NewRPCLogSource(client, ingestion.RPCLogSourceOptions{Logger: logger})
	if err != nil {
		return err
	}

	var archive *ingestion.ArchiveWriter
	if cfg.ArchivePath != "" {
		f, err := os.OpenFile(cfg.ArchivePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer f.Close()
		archive = ingestion.NewArchiveWriter(f)
	}

	backfiller := ingestion.NewBackfiller(ingestion.BackfillOptions{
		Source:    source,
		Indexer:   ix,
		Archive:   archive,
		ChunkSize: cfg.ChunkSize,
		Logger:    logger,
	})

	if cfg.EndBlock != 0 {
		if next > cfg.EndBlock {
			logger.Info("already indexed to end block", zap.Uint64("end_block", cfg.EndBlock))
			return nil
		}
		result, err := backfiller.Run(ctx, next, cfg.EndBlock)
		if err != nil {
			return err
		}
		logger.Info("backfill complete",
			zap.Int("chunks", result.Chunks),
			zap.Int("logs", result.Logs),
			zap.Int("applied", result.Applied),
			zap.Int("failed", result.Failed),
			zap.Duration("duration", result.Duration),
		)
		return nil
	}

	var heads chain.HeadSubscriber
	if cfg.WSEndpoint != "" {
		wsCfg := chain.DefaultWSConfig()
		wsCfg.Logger = logger
		ws, err := chain.NewWSClient(ctx, cfg.WSEndpoint, &wsCfg)
		if err != nil {
			logger.Warn("websocket unavailable, polling for heads", zap.Error(err))
		} else {
			defer ws.Close()
			heads = ws
		}
	}

	follower := ingestion.NewFollower(ingestion.FollowerOptions{
		Source:        source,
		Heads:         heads,
		Backfiller:    backfiller,
		Confirmations: cfg.Confirmations,
		PollInterval:  cfg.PollInterval,
		Logger:        logger,
	})

	for {
		_, err := follower.Run(ctx, next)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, chain.ErrUnavailable) {
			return err
		}
		logger.Warn("follower interrupted, resuming from cursor", zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.PollInterval):
		}
		if next, err = ix.Resume(ctx, cfg.StartBlock); err != nil {
			return err
		}
	}
}

func startHTTPServer(addr string, server *api.Server, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
		}
	}()
	return srv
}
