// Package scheduler drives the periodic sync trigger. Manual triggers go
// through the API; this loop only adds a cadence on top of the same
// orchestrator, which enforces the single-flight guard for both.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pmhub/server/internal/sync"
)

type Syncer interface {
	RunFullSync(ctx context.Context) (sync.Result, error)
}

type AutoSync struct {
	syncer   Syncer
	interval time.Duration
	logger   *slog.Logger
}

func New(syncer Syncer, interval time.Duration, logger *slog.Logger) *AutoSync {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoSync{syncer: syncer, interval: interval, logger: logger}
}

// Run performs one startup sync and then re-syncs on the configured interval
// until ctx is canceled. Failures are logged, never fatal.
func (a *AutoSync) Run(ctx context.Context) {
	a.syncOnce(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.syncOnce(ctx)
		}
	}
}

func (a *AutoSync) syncOnce(ctx context.Context) {
	res, err := a.syncer.RunFullSync(ctx)
	switch {
	case errors.Is(err, sync.ErrSyncInProgress):
		a.logger.Debug("scheduled sync skipped, run already in flight")
	case err != nil:
		a.logger.Error("scheduled sync failed", "error", err)
	default:
		a.logger.Info("scheduled sync completed", "item_count", res.ItemCount)
	}
}
