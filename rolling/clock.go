package rolling

import (
	"time"

	"github.com/harwell/rollwin/interfaces"
)

// systemClock is the default interfaces.Clock: wall time from time.Now and
// a monotonic nanosecond tick measured from process reference time.
type systemClock struct {
	base time.Time
}

// SystemClock returns the default clock backed by the runtime monotonic
// clock. Safe for concurrent use.
func SystemClock() interfaces.Clock {
	return &systemClock{base: time.Now()}
}

func (c *systemClock) Now() time.Time {
	return time.Now()
}

func (c *systemClock) Tick() int64 {
	// time.Since uses the monotonic reading embedded in base.
	return time.Since(c.base).Nanoseconds()
}

// nopDurationSink discards durations; used when no histogram is wired.
type nopDurationSink struct{}

func (nopDurationSink) Update(int64) {}

// nopRollupSink discards rollups; used when no sink is wired.
type nopRollupSink struct{}

func (nopRollupSink) EmitRollup(int64, interfaces.Rollup) {}
