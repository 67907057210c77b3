package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"core-indexer/internal/app"
	"core-indexer/internal/config"
	"core-indexer/internal/logging"
	"core-indexer/internal/reporting"
	"core-indexer/internal/verification"
)

func main() {
	cfg, err := config.Load("verify", ".env", os.Args[1:])
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := verify(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("verification failed", zap.Error(err))
	}

	if err := writeReport(os.Stdout, cfg.ReportFormat, report); err != nil {
		logger.Fatal("write report", zap.Error(err))
	}
	if !report.OK() {
		_ = logger.Sync()
		os.Exit(1)
	}
}

func verify(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*verification.Report, error) {
	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	return verification.New(store, verification.Options{Logger: logger}).Verify(ctx)
}

func writeReport(w io.Writer, format string, report *verification.Report) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "markdown":
		_, err := io.WriteString(w, reporting.RenderMarkdown(report))
		return err
	case "csv":
		return reporting.WriteCSV(w, report.Violations)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}
