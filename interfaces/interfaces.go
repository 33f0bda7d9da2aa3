// Package interfaces defines the narrow contracts between the rolling
// metrics engine and its external collaborators. The engine never depends
// on a concrete clock, scheduler or sink implementation directly; the
// composition root wires the real implementations in.
package interfaces

import "time"

// Clock supplies wall-clock time (for minute-boundary decisions) and a
// monotonic nanosecond tick (for duration math). Implementations must be
// safe for concurrent use.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time

	// Tick returns a monotonic counter in nanoseconds. Differences between
	// two Tick values measure elapsed time; the absolute value carries no
	// meaning.
	Tick() int64
}

// DurationSink receives individual call durations from a timer, already
// converted to the timer's duration unit. The canonical implementation is
// a histogram; the engine only requires Update.
type DurationSink interface {
	Update(duration int64)
}

// Rollup is the once-per-minute summary a RequestRecord hands to its sink.
// Times are in the record's timer duration unit (milliseconds by default).
type Rollup struct {
	Name        string
	TotalCount  int64
	ServedCount int64
	FailedCount int64
	TotalTime   float64
	MaxTime     float64
	AvgTime     float64
}

// RollupSink receives the per-minute rollup together with the wall-clock
// timestamp (seconds since epoch) at which it was computed. Formatting and
// transport are the sink's concern.
type RollupSink interface {
	EmitRollup(ts int64, r Rollup)
}

// Ticker is anything advanced by the periodic tick driver. Tick rotates
// window state and must only ever be invoked by a single actor at a time.
type Ticker interface {
	Tick()
}

// TickScheduler drives registered Tickers at a fixed cadence. Invocations
// of the same registered Ticker must never overlap; the engine's
// lock-minimal rotation depends on that guarantee.
type TickScheduler interface {
	Register(interval time.Duration, t Ticker) error
	Start()
	Stop()
}
