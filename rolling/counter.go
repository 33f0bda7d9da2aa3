// Package rolling implements the sliding-window counting and timing engine:
// bucketed rolling counters, absolute meters over 1/5/15-minute horizons,
// rolling timers, and the request record that aggregates them with a
// once-per-minute rollup.
//
// Hot-path operations (Inc, Dec, Mark, timing stops) are single atomic adds
// with no locks and are safe under unbounded concurrent callers. Rotation
// (Tick) is driven by exactly one background actor per structure; see the
// interfaces.TickScheduler contract.
package rolling

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrInvalidConfiguration is returned when a window length and tick
// granularity cannot form a valid bucket layout.
var ErrInvalidConfiguration = errors.New("invalid window configuration")

// bucket holds the accumulated total (and peak single increment) of one
// tick interval.
type bucket struct {
	count int64
	max   int64
}

// Counter records the absolute number of events that occurred during the
// trailing window. Events land in an in-progress accumulator; the periodic
// Tick retires it into a rotating bucket history and evicts expired
// buckets. Count is always the sum of the retained buckets plus the
// in-progress accumulator.
type Counter struct {
	inProgress    atomic.Int64
	total         atomic.Int64
	inProgressMax atomic.Int64
	windowMax     atomic.Int64

	trackMax bool

	// Bucket history, most recent at newest. Owned exclusively by the tick
	// actor; readers never touch it. retained stays below capacity so the
	// slot for the next push is always free.
	ring     []bucket
	newest   int
	retained int
}

// New creates a sliding-window counter covering window, rotated every tick.
// The tick granularity must be whole seconds (one second or coarser), the
// window must be an integer multiple of it, and the window must span at
// least two buckets. Violations return ErrInvalidConfiguration.
func New(window, tick time.Duration) (*Counter, error) {
	return newCounter(window, tick, false)
}

// NewWithMax creates a counter that additionally tracks the peak single
// increment observed within the window, at the cost of one extra atomic
// update per Inc.
func NewWithMax(window, tick time.Duration) (*Counter, error) {
	return newCounter(window, tick, true)
}

func newCounter(window, tick time.Duration, trackMax bool) (*Counter, error) {
	if tick < time.Second || tick%time.Second != 0 {
		return nil, fmt.Errorf("%w: tick granularity %v must be whole seconds", ErrInvalidConfiguration, tick)
	}
	if window <= 0 || window%tick != 0 {
		return nil, fmt.Errorf("%w: window %v is not a multiple of tick %v", ErrInvalidConfiguration, window, tick)
	}
	buckets := int(window / tick)
	if buckets < 2 {
		return nil, fmt.Errorf("%w: window %v spans fewer than 2 ticks of %v", ErrInvalidConfiguration, window, tick)
	}
	return &Counter{
		trackMax: trackMax,
		ring:     make([]bucket, buckets),
		newest:   -1,
	}, nil
}

// Inc adds n to the in-progress accumulator and the running total. Never
// blocks; safe under unbounded concurrent callers.
func (c *Counter) Inc(n int64) {
	c.inProgress.Add(n)
	c.total.Add(n)
	if c.trackMax {
		storeMax(&c.inProgressMax, n)
		storeMax(&c.windowMax, n)
	}
}

// Dec subtracts n. Decrements never lower the tracked maximum.
func (c *Counter) Dec(n int64) {
	c.inProgress.Add(-n)
	c.total.Add(-n)
}

// Count returns the running total over the window: retained buckets plus
// the in-progress accumulator. Lock-free.
func (c *Counter) Count() int64 {
	return c.total.Load()
}

// Max returns the peak single increment within the window. Always 0 for
// counters built with New.
func (c *Counter) Max() int64 {
	return c.windowMax.Load()
}

// Tick rotates the bucket history: evicts the oldest bucket once the
// history is about to reach capacity, then retires the in-progress
// accumulator as the newest bucket. Must be invoked by a single actor;
// never call it from request-handling code.
func (c *Counter) Tick() {
	capacity := len(c.ring)

	if c.retained+1 >= capacity {
		oldestIdx := (c.newest - c.retained + 1 + capacity) % capacity
		oldest := c.ring[oldestIdx]
		c.retained--
		c.total.Add(-oldest.count)
		if c.trackMax && oldest.max == c.windowMax.Load() {
			c.recomputeMax(oldest.max)
		}
	}

	b := bucket{count: c.inProgress.Swap(0)}
	if c.trackMax {
		b.max = c.inProgressMax.Swap(0)
	}
	c.newest = (c.newest + 1) % capacity
	c.ring[c.newest] = b
	c.retained++
}

// recomputeMax rescans the retained buckets and the not-yet-retired
// in-progress maximum after the bucket holding the window max was evicted.
// The result is installed with a CAS keyed on the evicted value so a
// concurrent increment that already raised the max always wins; the max
// only ever drops through eviction of the bucket that held it.
func (c *Counter) recomputeMax(evicted int64) {
	capacity := len(c.ring)
	m := int64(0)
	for i := 0; i < c.retained; i++ {
		idx := (c.newest - i + capacity) % capacity
		if v := c.ring[idx].max; v > m {
			m = v
		}
	}
	if v := c.inProgressMax.Load(); v > m {
		m = v
	}
	c.windowMax.CompareAndSwap(evicted, m)
	// An increment may have landed between the scan and the CAS; fold its
	// in-progress maximum back in.
	storeMax(&c.windowMax, c.inProgressMax.Load())
}

// Clear resets the total, the maxima, the in-progress accumulator and
// discards all retained buckets. Not safe to call concurrently with Tick;
// serialize against the tick actor.
func (c *Counter) Clear() {
	c.inProgress.Store(0)
	c.total.Store(0)
	c.inProgressMax.Store(0)
	c.windowMax.Store(0)
	c.retained = 0
	c.newest = -1
}

// storeMax atomically raises a to v when v is greater. This is the single
// max-update primitive shared by every max-tracking path.
func storeMax(a *atomic.Int64, v int64) {
	for {
		cur := a.Load()
		if v <= cur || a.CompareAndSwap(cur, v) {
			return
		}
	}
}
