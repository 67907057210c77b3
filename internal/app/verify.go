package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"core-indexer/internal/verification"
)

const verifyTimeout = 5 * time.Minute

// ReportSink receives each completed verification report.
type ReportSink interface {
	SetVerification(r *verification.Report)
}

// ScheduleVerification runs v on a six-field cron schedule and hands every
// report to sink. The caller starts and stops the returned scheduler.
func ScheduleVerification(ctx context.Context, schedule string, v *verification.Verifier, sink ReportSink, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		),
	)
	_, err := c.AddFunc(schedule, func() {
		RunVerification(ctx, v, sink, logger)
	})
	if err != nil {
		return nil, fmt.Errorf("verify schedule %q: %w", schedule, err)
	}
	return c, nil
}

// RunVerification runs one verification pass and publishes the report.
func RunVerification(ctx context.Context, v *verification.Verifier, sink ReportSink, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	report, err := v.Verify(ctx)
	if err != nil {
		logger.Error("verification failed", zap.Error(err))
		return
	}
	if sink != nil {
		sink.SetVerification(report)
	}
	if !report.OK() {
		logger.Warn("verification found violations",
			zap.Int("violations", len(report.Violations)),
			zap.Any("by_check", report.ViolationsByCheck()),
		)
	}
}
