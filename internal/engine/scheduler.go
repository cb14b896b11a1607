package engine

import (
	"context"
	"time"

	"drift/internal/logger"
)

// IntervalScheduler runs a task on a fixed cadence. Cancellation is only
// observed between runs: a task that has started always finishes.
type IntervalScheduler struct {
	Interval       time.Duration
	RunImmediately bool

	nowFn func() time.Time
}

// Start blocks until ctx is cancelled or task returns false (no more
// cycles wanted).
func (s *IntervalScheduler) Start(ctx context.Context, task func() bool) {
	if s == nil || task == nil {
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("IntervalScheduler: invalid interval=%s, exit", s.Interval)
		return
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	startAt := s.nowFn().UTC()
	logger.Infof("IntervalScheduler: started interval=%s run_immediately=%v at=%s",
		s.Interval, s.RunImmediately, startAt.Format(time.RFC3339))

	if s.RunImmediately {
		if !task() {
			return
		}
	}

	timer := time.NewTimer(s.Interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("IntervalScheduler: stopping, uptime=%s",
				s.nowFn().UTC().Sub(startAt).Truncate(time.Second))
			return
		case <-timer.C:
		}
		if !task() {
			return
		}
		timer.Reset(s.Interval)
	}
}
