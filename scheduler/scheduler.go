// Package scheduler drives the periodic tick of rolling windows. It wraps
// a shared gocron scheduler: every metric structure registers its own
// fixed-cadence job, and singleton mode guarantees invocations of the same
// job never overlap: the serial-callback contract the engine's lock-minimal
// rotation depends on.
package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/harwell/rollwin/interfaces"
	"github.com/harwell/rollwin/logging"
)

// Compile-time check to ensure Scheduler implements the TickScheduler contract
var _ interfaces.TickScheduler = (*Scheduler)(nil)

// Scheduler registers Tickers on a shared gocron scheduler. Its lifecycle
// (Start/Stop) is owned by the process's composition root; metric
// structures only ever see the Register side.
type Scheduler struct {
	scheduler *gocron.Scheduler
}

// NewScheduler creates a stopped scheduler. Call Start after registering
// the initial tickers; late registrations on a started scheduler also run.
func NewScheduler() *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Register schedules t.Tick to run every interval. The job runs in
// singleton mode, so a slow tick delays the next one instead of running
// concurrently with it.
func (s *Scheduler) Register(interval time.Duration, t interfaces.Ticker) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got: %v", interval)
	}
	_, err := s.scheduler.Every(interval).SingletonMode().Do(func() {
		t.Tick()
	})
	if err != nil {
		logging.Error("Failed to register ticker", "interval", interval.String(), "error", err)
		return fmt.Errorf("failed to register ticker: %w", err)
	}
	return nil
}

// Start begins driving registered tickers asynchronously.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop halts the scheduler. In-flight ticks complete; no new ones start.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
