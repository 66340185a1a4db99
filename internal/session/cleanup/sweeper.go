// Package cleanup deletes refresh token records that can never be used again.
package cleanup

import (
	"context"
	"time"

	"piiwatch/internal/logging"
	"piiwatch/internal/telemetry"
)

// StaleDeleter is the refresh token store operation the sweeper needs.
type StaleDeleter interface {
	DeleteStale(ctx context.Context, now time.Time, grace time.Duration) (int64, error)
}

// Sweeper removes expired refresh tokens and revoked ones untouched for longer than Grace.
type Sweeper struct {
	store   StaleDeleter
	grace   time.Duration
	logger  logging.Logger
	metrics *telemetry.AuthMetrics
	now     func() time.Time
}

// NewSweeper returns a Sweeper. metrics may be nil.
func NewSweeper(store StaleDeleter, grace time.Duration, logger logging.Logger, metrics *telemetry.AuthMetrics) *Sweeper {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Sweeper{store: store, grace: grace, logger: logger, metrics: metrics, now: time.Now}
}

// WithClock returns a copy of s that reads the current time from now.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	cp := *s
	cp.now = now
	return &cp
}

// Sweep deletes stale records once and returns how many were removed.
// Failures are logged and reported as zero; a sweep never fails its caller.
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	n, err := s.store.DeleteStale(ctx, s.now().UTC(), s.grace)
	if err != nil {
		s.logger.Error(ctx, "cleanup: sweep failed", "reason", "cleanup", "error", err)
		return 0
	}
	if n > 0 {
		s.logger.Info(ctx, "cleanup: deleted stale refresh tokens", "count", n)
	}
	s.metrics.RecordSwept(ctx, n)
	return n
}

// Run sweeps immediately and then every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
