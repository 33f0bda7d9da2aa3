package rolling

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/harwell/rollwin/interfaces"
)

// Timer measures call durations against a rolling absolute meter. Each
// recorded duration is converted to the timer's duration unit, fed to the
// duration sink (histogram), and then marked on the meter. The
// meter therefore accumulates summed elapsed time: the one/five/fifteen-
// minute figures are total time spent in the tracked operation over that
// window, not call volume.
//
// A duration that converts negative (a misbehaving clock) is dropped from
// the sink but still marked on the meter, so the rolling totals and the
// distribution can disagree under clock misbehavior.
type Timer struct {
	meter *Meter
	sink  interfaces.DurationSink
	clock interfaces.Clock
	unit  time.Duration

	// calls counts timing entries cumulatively. It is never decremented
	// and is not reset by Tick.
	calls atomic.Int64
}

// NewTimer creates a rolling timer. unit must be between time.Nanosecond
// and time.Hour; the windows rotate every tick. A nil sink discards
// durations and a nil clock selects the system clock.
func NewTimer(unit time.Duration, tick time.Duration, sink interfaces.DurationSink, clock interfaces.Clock) (*Timer, error) {
	switch unit {
	case time.Nanosecond, time.Microsecond, time.Millisecond, time.Second, time.Minute, time.Hour:
	default:
		return nil, fmt.Errorf("%w: unrecognized duration unit %v", ErrInvalidConfiguration, unit)
	}
	meter, err := NewMeter(tick)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = nopDurationSink{}
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Timer{meter: meter, sink: sink, clock: clock, unit: unit}, nil
}

// Time records the duration of fn. The duration is recorded even when fn
// returns an error (or panics); the error is propagated unchanged.
func (t *Timer) Time(fn func() error) error {
	t.calls.Add(1)
	start := t.clock.Tick()
	defer func() {
		t.update(t.clock.Tick() - start)
	}()
	return fn()
}

// Start begins a timing and returns a stopwatch finalized by Stop. Each
// Start counts as one timing entry.
func (t *Timer) Start() *StopWatch {
	t.calls.Add(1)
	return &StopWatch{timer: t, start: t.clock.Tick()}
}

// update records a raw nanosecond duration: converts to the configured
// unit, updates the sink when non-negative, then marks the meter
// unconditionally.
func (t *Timer) update(ns int64) {
	d := ns / int64(t.unit)
	if d >= 0 {
		t.sink.Update(d)
	}
	t.meter.Mark(d)
}

// Tick advances the underlying meter's windows. Single-actor only.
func (t *Timer) Tick() {
	t.meter.Tick()
}

// Calls returns the cumulative number of timing entries since creation.
func (t *Timer) Calls() int64 {
	return t.calls.Load()
}

// Unit returns the timer's duration unit.
func (t *Timer) Unit() time.Duration {
	return t.unit
}

// OneMinuteRate returns the summed duration (in the timer's unit) spent in
// the tracked operation over the trailing minute. See Meter.OneMinuteRate
// for the naming caveat.
func (t *Timer) OneMinuteRate() float64 { return t.meter.OneMinuteRate() }

// FiveMinuteRate returns the summed duration over the trailing five
// minutes.
func (t *Timer) FiveMinuteRate() float64 { return t.meter.FiveMinuteRate() }

// FifteenMinuteRate returns the summed duration over the trailing fifteen
// minutes.
func (t *Timer) FifteenMinuteRate() float64 { return t.meter.FifteenMinuteRate() }

// OneMinuteMax returns the longest single call within the trailing minute.
func (t *Timer) OneMinuteMax() float64 { return t.meter.OneMinuteMax() }

// FiveMinuteMax returns the longest single call within the trailing five
// minutes.
func (t *Timer) FiveMinuteMax() float64 { return t.meter.FiveMinuteMax() }

// FifteenMinuteMax returns the longest single call within the trailing
// fifteen minutes.
func (t *Timer) FifteenMinuteMax() float64 { return t.meter.FifteenMinuteMax() }

// StopWatch is a scoped timing handle returned by Timer.Start. Not safe for
// concurrent use.
type StopWatch struct {
	timer *Timer
	start int64
}

// Stop finalizes the timing, records it, and returns the elapsed
// nanoseconds.
func (s *StopWatch) Stop() int64 {
	d := s.timer.clock.Tick() - s.start
	s.timer.update(d)
	return d
}
