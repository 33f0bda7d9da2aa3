package rolling

import (
	"sync/atomic"
	"time"
)

// Meter reports the absolute number of events that occurred in the last 1,
// 5 and 15 minutes, plus a lifetime count. Unlike an exponentially-decayed
// meter, the per-window figures are exact trailing totals.
type Meter struct {
	count atomic.Int64
	m1    *Counter
	m5    *Counter
	m15   *Counter
}

// NewMeter creates a meter whose three windows are rotated every tick. The
// tick granularity must validly divide a one-minute window (see New); the
// five- and fifteen-minute windows follow from the same cadence.
func NewMeter(tick time.Duration) (*Meter, error) {
	m1, err := NewWithMax(time.Minute, tick)
	if err != nil {
		return nil, err
	}
	m5, err := NewWithMax(5*time.Minute, tick)
	if err != nil {
		return nil, err
	}
	m15, err := NewWithMax(15*time.Minute, tick)
	if err != nil {
		return nil, err
	}
	return &Meter{m1: m1, m5: m5, m15: m15}, nil
}

// Mark records n events: the lifetime count and all three windows each
// reflect the increment exactly once. The four adds are independent atomics,
// not a cross-window snapshot; concurrent readers may briefly observe one
// window ahead of another.
func (m *Meter) Mark(n int64) {
	m.count.Add(n)
	m.m1.Inc(n)
	m.m5.Inc(n)
	m.m15.Inc(n)
}

// Tick advances all three windows. Single-actor only.
func (m *Meter) Tick() {
	m.m1.Tick()
	m.m5.Tick()
	m.m15.Tick()
}

// Count returns the lifetime number of events marked.
func (m *Meter) Count() int64 {
	return m.count.Load()
}

// OneMinuteRate returns the absolute event total over the trailing minute.
// Despite the name (kept for meter-interface compatibility) this is NOT a
// per-second rate; divide by the window length for one.
func (m *Meter) OneMinuteRate() float64 {
	return float64(m.m1.Count())
}

// FiveMinuteRate returns the absolute event total over the trailing five
// minutes. See OneMinuteRate for the naming caveat.
func (m *Meter) FiveMinuteRate() float64 {
	return float64(m.m5.Count())
}

// FifteenMinuteRate returns the absolute event total over the trailing
// fifteen minutes. See OneMinuteRate for the naming caveat.
func (m *Meter) FifteenMinuteRate() float64 {
	return float64(m.m15.Count())
}

// OneMinuteMax returns the peak single mark within the trailing minute.
func (m *Meter) OneMinuteMax() float64 {
	return float64(m.m1.Max())
}

// FiveMinuteMax returns the peak single mark within the trailing five
// minutes.
func (m *Meter) FiveMinuteMax() float64 {
	return float64(m.m5.Max())
}

// FifteenMinuteMax returns the peak single mark within the trailing fifteen
// minutes.
func (m *Meter) FifteenMinuteMax() float64 {
	return float64(m.m15.Max())
}

// Clear resets the lifetime count and all three windows. Not safe
// concurrently with Tick.
func (m *Meter) Clear() {
	m.count.Store(0)
	m.m1.Clear()
	m.m5.Clear()
	m.m15.Clear()
}
