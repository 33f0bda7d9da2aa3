package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

// countingTicker counts ticks and tracks concurrent entries.
type countingTicker struct {
	ticks     atomic.Int64
	inTick    atomic.Int64
	maxInTick atomic.Int64
	tickDelay time.Duration
}

func (c *countingTicker) Tick() {
	n := c.inTick.Add(1)
	if n > c.maxInTick.Load() {
		c.maxInTick.Store(n)
	}
	if c.tickDelay > 0 {
		time.Sleep(c.tickDelay)
	}
	c.ticks.Add(1)
	c.inTick.Add(-1)
}

func TestSchedulerDrivesTicker(t *testing.T) {
	s := NewScheduler()
	ticker := &countingTicker{}

	if err := s.Register(50*time.Millisecond, ticker); err != nil {
		t.Fatalf("Register: %v", err)
	}

	s.Start()
	time.Sleep(300 * time.Millisecond)
	s.Stop()

	if got := ticker.ticks.Load(); got < 2 {
		t.Errorf("ticks: got %d, want at least 2", got)
	}
}

func TestSchedulerRejectsInvalidInterval(t *testing.T) {
	s := NewScheduler()

	if err := s.Register(0, &countingTicker{}); err == nil {
		t.Error("Register(0): expected error, got nil")
	}
	if err := s.Register(-time.Second, &countingTicker{}); err == nil {
		t.Error("Register(-1s): expected error, got nil")
	}
}

func TestSchedulerNeverOverlapsSameTicker(t *testing.T) {
	s := NewScheduler()
	ticker := &countingTicker{tickDelay: 120 * time.Millisecond}

	if err := s.Register(50*time.Millisecond, ticker); err != nil {
		t.Fatalf("Register: %v", err)
	}

	s.Start()
	time.Sleep(500 * time.Millisecond)
	s.Stop()

	if got := ticker.maxInTick.Load(); got > 1 {
		t.Errorf("concurrent tick invocations: got %d, want at most 1", got)
	}
	if got := ticker.ticks.Load(); got == 0 {
		t.Error("ticker never ran")
	}
}

func TestSchedulerMultipleTickers(t *testing.T) {
	s := NewScheduler()
	first := &countingTicker{}
	second := &countingTicker{}

	if err := s.Register(50*time.Millisecond, first); err != nil {
		t.Fatalf("Register first: %v", err)
	}
	if err := s.Register(50*time.Millisecond, second); err != nil {
		t.Fatalf("Register second: %v", err)
	}

	s.Start()
	time.Sleep(300 * time.Millisecond)
	s.Stop()

	if first.ticks.Load() == 0 || second.ticks.Load() == 0 {
		t.Errorf("both tickers should run: got %d and %d", first.ticks.Load(), second.ticks.Load())
	}
}
