// Package scheduler implements subscription.Scheduler on top of gocron.
package scheduler

import (
	"fmt"
	"math"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Scheduler runs every subscription's publishing-timer ticks as one-shot
// gocron jobs. Each tick reschedules its own next job from inside
// Subscription.OnTimer rather than gocron re-firing a recurring job, so a
// changed publishing_interval takes effect on the very next tick.
type Scheduler struct {
	log       *zap.Logger
	scheduler gocron.Scheduler
}

// New starts the underlying gocron scheduler.
func New(log *zap.Logger) (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating publishing-timer scheduler: %w", err)
	}
	gs.Start()

	return &Scheduler{log: log, scheduler: gs}, nil
}

// ScheduleAfter invokes callback exactly once, intervalMS milliseconds
// from now, on a gocron worker goroutine.
func (s *Scheduler) ScheduleAfter(intervalMS float64, callback func()) {
	interval := time.Duration(math.Ceil(intervalMS)) * time.Millisecond

	_, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(time.Now().Add(interval))),
		gocron.NewTask(callback),
	)
	if err != nil {
		s.log.Error("failed to schedule publishing timer tick", zap.Error(err), zap.Duration("interval", interval))
	}
}

// Shutdown stops the underlying gocron scheduler, waiting for in-flight
// jobs to finish.
func (s *Scheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}
