package rolling

import (
	"time"

	"github.com/harwell/rollwin/interfaces"
)

const secondsInMinute = 60

// RequestRecord aggregates served/failed counts and handling times for one
// logical endpoint or service over the trailing minute. Request-handling
// code drives it through timing contexts (Start, then Served or Failed);
// a single scheduled actor drives Tick, which rotates every window and
// emits one rollup to the sink per crossed wall-clock minute.
type RequestRecord struct {
	name   string
	clock  interfaces.Clock
	served *Counter
	failed *Counter
	timer  *Timer
	sink   interfaces.RollupSink

	// lastMinute is the last wall-clock minute for which a rollup was
	// emitted. Only the tick actor touches it.
	lastMinute int64
}

// NewRequestRecord creates a request record named name whose windows rotate
// every tick. Tick must be registered with the scheduler at that same
// cadence, or the "last minute" figures span the wrong wall-clock stretch.
// Handling times are tracked in milliseconds. A nil clock selects the
// system clock; nil sinks discard durations and rollups respectively.
func NewRequestRecord(name string, tick time.Duration, clock interfaces.Clock, durations interfaces.DurationSink, rollups interfaces.RollupSink) (*RequestRecord, error) {
	if clock == nil {
		clock = SystemClock()
	}
	if rollups == nil {
		rollups = nopRollupSink{}
	}
	served, err := New(time.Minute, tick)
	if err != nil {
		return nil, err
	}
	failed, err := New(time.Minute, tick)
	if err != nil {
		return nil, err
	}
	timer, err := NewTimer(time.Millisecond, tick, durations, clock)
	if err != nil {
		return nil, err
	}
	return &RequestRecord{
		name:   name,
		clock:  clock,
		served: served,
		failed: failed,
		timer:  timer,
		sink:   rollups,
	}, nil
}

// Name returns the record name used to tag rollups.
func (r *RequestRecord) Name() string {
	return r.name
}

// NewContext returns a reusable timing context. Allocate one per worker
// goroutine (or hold them in a pool) and reuse it across requests; a
// context must not be shared between goroutines.
func (r *RequestRecord) NewContext() *RequestContext {
	return &RequestContext{rec: r, start: r.clock.Tick()}
}

// Tick advances the served and failed windows and the timer, then emits a
// rollup if the wall clock has crossed into a new minute since the last
// emission. Rotation happens on every invocation; emission at most once per
// minute. The very first tick always emits, since no minute has been
// reported yet; on a fresh record that line describes an empty window.
// Single-actor only.
func (r *RequestRecord) Tick() {
	r.served.Tick()
	r.failed.Tick()
	r.timer.Tick()

	ts := r.clock.Now().Unix()
	thisMinute := ts / secondsInMinute
	if thisMinute > r.lastMinute {
		r.lastMinute = thisMinute
		r.sink.EmitRollup(ts, interfaces.Rollup{
			Name:        r.name,
			TotalCount:  r.LastMinuteTotalCount(),
			ServedCount: r.LastMinuteServedCount(),
			FailedCount: r.LastMinuteFailedCount(),
			TotalTime:   r.LastMinuteTotalTime(),
			MaxTime:     r.LastMinuteMaxTime(),
			AvgTime:     r.LastMinuteAvgTime(),
		})
	}
}

// LastMinuteServedCount returns the number of requests marked served in the
// last minute.
func (r *RequestRecord) LastMinuteServedCount() int64 {
	return r.served.Count()
}

// LastMinuteFailedCount returns the number of requests marked failed in the
// last minute.
func (r *RequestRecord) LastMinuteFailedCount() int64 {
	return r.failed.Count()
}

// LastMinuteTotalCount returns served plus failed. Always derived, never
// stored, so it cannot drift from its parts.
func (r *RequestRecord) LastMinuteTotalCount() int64 {
	return r.LastMinuteServedCount() + r.LastMinuteFailedCount()
}

// LastMinuteTotalTime returns the summed handling time over the last
// minute, in milliseconds.
func (r *RequestRecord) LastMinuteTotalTime() float64 {
	return r.timer.OneMinuteRate()
}

// LastMinuteMaxTime returns the longest single handling time over the last
// minute, in milliseconds.
func (r *RequestRecord) LastMinuteMaxTime() float64 {
	return r.timer.OneMinuteMax()
}

// LastMinuteAvgTime returns total time divided by total count, or 0 when no
// requests completed in the last minute.
func (r *RequestRecord) LastMinuteAvgTime() float64 {
	total := r.LastMinuteTotalCount()
	if total == 0 {
		return 0
	}
	return r.timer.OneMinuteRate() / float64(total)
}

// Timer exposes the record's concurrent timer for callers that want the
// five/fifteen-minute horizons or the cumulative call count.
func (r *RequestRecord) Timer() *Timer {
	return r.timer
}

// RequestContext is a reusable per-worker timing handle. The zero start is
// the context's creation tick, so marking without a preceding Start yields
// a duration measured from creation (or from a stale prior start); correct
// pairing is the caller's responsibility.
type RequestContext struct {
	rec   *RequestRecord
	start int64
}

// Start records the request start tick and returns it. Calling Start again
// without an intervening Served or Failed overwrites the previous start,
// silently discarding that request's timing.
func (c *RequestContext) Start() int64 {
	c.rec.timer.calls.Add(1)
	c.start = c.rec.clock.Tick()
	return c.start
}

// Served marks the request as successfully served, stops the timing, and
// returns the elapsed nanoseconds.
func (c *RequestContext) Served() int64 {
	c.rec.served.Inc(1)
	return c.stop()
}

// Failed marks the request as failed, stops the timing, and returns the
// elapsed nanoseconds.
func (c *RequestContext) Failed() int64 {
	c.rec.failed.Inc(1)
	return c.stop()
}

func (c *RequestContext) stop() int64 {
	d := c.rec.clock.Tick() - c.start
	c.rec.timer.update(d)
	return d
}
