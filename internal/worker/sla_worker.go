package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TronoSfera/Law-sub001/internal/observability"
	"github.com/TronoSfera/Law-sub001/internal/service"
)

// Locker grants a short exclusive lease. persistence.Redis implements it.
type Locker interface {
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, func(context.Context) error, error)
}

// SLAChecker runs one SLA pass.
type SLAChecker interface {
	RunCheck(ctx context.Context) (service.SLARunResult, error)
}

// SLAWorker runs the SLA check on a ticker. With a locker only one replica
// runs per tick; when the locker is unreachable every replica runs and the
// notification dedupe keys keep the result the same.
type SLAWorker struct {
	checker  SLAChecker
	locker   Locker
	lockKey  string
	interval time.Duration
	token    string
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// SLAWorkerConfig configures the worker.
type SLAWorkerConfig struct {
	Interval time.Duration
	LockKey  string
}

// NewSLAWorker builds the worker. locker may be nil.
func NewSLAWorker(cfg SLAWorkerConfig, checker SLAChecker, locker Locker, metrics *observability.Metrics, logger *zap.Logger) *SLAWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.LockKey == "" {
		cfg.LockKey = "law-desk:sla:lock"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAWorker{
		checker:  checker,
		locker:   locker,
		lockKey:  cfg.LockKey,
		interval: cfg.Interval,
		token:    uuid.NewString(),
		metrics:  metrics,
		logger:   logger,
	}
}

// Run ticks until ctx is done.
func (w *SLAWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.logger.Info("sla worker started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sla worker stopped")
			return nil
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one guarded check. It reports whether the check ran.
func (w *SLAWorker) Tick(ctx context.Context) bool {
	release, acquired := w.acquire(ctx)
	if !acquired {
		w.metrics.RecordSLAScan(0, "skipped")
		return false
	}
	if release != nil {
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				w.logger.Warn("sla lock release failed", zap.Error(err))
			}
		}()
	}

	start := time.Now()
	result, err := w.checker.RunCheck(ctx)
	if err != nil {
		w.metrics.RecordSLAScan(0, "error")
		w.logger.Error("sla check failed", zap.Error(err))
		return true
	}
	w.metrics.RecordSLAScan(result.Snapshot.Overdue, "ok")
	w.logger.Info("sla check completed",
		zap.Int("checked", result.Snapshot.Checked),
		zap.Int("overdue", result.Snapshot.Overdue),
		zap.Int("notifications_created", result.NotificationsCreated),
		zap.Int("failed", result.Failed),
		zap.Duration("took", time.Since(start)),
	)
	return true
}

func (w *SLAWorker) acquire(ctx context.Context) (func(context.Context) error, bool) {
	if w.locker == nil {
		return nil, true
	}
	ok, release, err := w.locker.TryLock(ctx, w.lockKey, w.token, w.interval)
	if err != nil {
		w.logger.Warn("sla lock unavailable, running unguarded", zap.Error(err))
		return nil, true
	}
	if !ok {
		w.logger.Debug("sla check held by another replica")
		return nil, false
	}
	return release, true
}
