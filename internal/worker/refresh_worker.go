package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	applog "sjcharts/internal/log"
)

// Refresher reloads the dataset and rebuilds derived tables.
type Refresher interface {
	Reload(ctx context.Context) error
	Warm(ctx context.Context) error
}

// RefreshWorker periodically reloads the dashboard dataset so new months
// show up without waiting for the snapshot to expire.
type RefreshWorker struct {
	target   Refresher
	interval time.Duration
	logger   *applog.Logger

	runs     atomic.Int64
	failures atomic.Int64
}

func NewRefreshWorker(target Refresher, interval time.Duration, logger *applog.Logger) *RefreshWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &RefreshWorker{
		target:   target,
		interval: interval,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// RunOnce reloads the dataset and warms the tables built from it.
func (w *RefreshWorker) RunOnce(ctx context.Context) error {
	w.runs.Add(1)
	start := time.Now()

	if err := w.target.Reload(ctx); err != nil {
		w.failures.Add(1)
		return fmt.Errorf("reload dataset: %w", err)
	}
	if err := w.target.Warm(ctx); err != nil {
		w.failures.Add(1)
		return fmt.Errorf("warm tables: %w", err)
	}

	w.logger.InfoContext(ctx, "Dataset refreshed",
		applog.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// Start blocks, refreshing on every tick until ctx is cancelled. A failed
// refresh is logged and the previous snapshot keeps being served.
func (w *RefreshWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		w.logger.Info("Dataset refresh disabled")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Dataset refresh worker started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Dataset refresh worker stopped", "runs", w.runs.Load())
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Dataset refresh failed",
					applog.FieldError, err,
					applog.FieldOperation, applog.OpRefresh)
			}
		}
	}
}

// Stats returns the number of refresh attempts and how many failed.
func (w *RefreshWorker) Stats() (runs, failures int64) {
	return w.runs.Load(), w.failures.Load()
}
