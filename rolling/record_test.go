package rolling

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harwell/rollwin/interfaces"
)

// recordingRollupSink captures emitted rollups.
type recordingRollupSink struct {
	timestamps []int64
	rollups    []interfaces.Rollup
}

func (s *recordingRollupSink) EmitRollup(ts int64, r interfaces.Rollup) {
	s.timestamps = append(s.timestamps, ts)
	s.rollups = append(s.rollups, r)
}

func newTestRecord(t *testing.T, clock interfaces.Clock, sink interfaces.RollupSink) *RequestRecord {
	t.Helper()
	rec, err := NewRequestRecord("requests", time.Second, clock, nil, sink)
	if err != nil {
		t.Fatalf("NewRequestRecord: %v", err)
	}
	return rec
}

func TestRecordColdStart(t *testing.T) {
	clock := newManualClock(time.Unix(120, 0))
	rec := newTestRecord(t, clock, nil)

	rec.Tick()

	if got := rec.LastMinuteTotalCount(); got != 0 {
		t.Errorf("LastMinuteTotalCount: got %d, want 0", got)
	}
	if got := rec.LastMinuteAvgTime(); got != 0 {
		t.Errorf("LastMinuteAvgTime: got %v, want 0", got)
	}
	if got := rec.LastMinuteMaxTime(); got != 0 {
		t.Errorf("LastMinuteMaxTime: got %v, want 0", got)
	}
}

func TestRecordServed(t *testing.T) {
	clock := newManualClock(time.Unix(120, 0))
	rec := newTestRecord(t, clock, nil)

	ctx := rec.NewContext()
	ctx.Start()
	clock.Advance(5 * time.Millisecond)
	elapsed := ctx.Served()

	if elapsed != (5 * time.Millisecond).Nanoseconds() {
		t.Errorf("Served elapsed: got %d ns, want %d ns", elapsed, (5 * time.Millisecond).Nanoseconds())
	}
	if got := rec.LastMinuteServedCount(); got != 1 {
		t.Errorf("LastMinuteServedCount: got %d, want 1", got)
	}
	if got := rec.LastMinuteFailedCount(); got != 0 {
		t.Errorf("LastMinuteFailedCount: got %d, want 0", got)
	}
	if got := rec.LastMinuteAvgTime(); got != 5 {
		t.Errorf("LastMinuteAvgTime: got %v, want 5", got)
	}
}

func TestRecordTotalIsDerived(t *testing.T) {
	clock := newManualClock(time.Unix(120, 0))
	rec := newTestRecord(t, clock, nil)

	ctx := rec.NewContext()
	for i := 0; i < 7; i++ {
		ctx.Start()
		clock.Advance(time.Millisecond)
		ctx.Served()
	}
	for i := 0; i < 3; i++ {
		ctx.Start()
		clock.Advance(time.Millisecond)
		ctx.Failed()
	}

	rec.Tick()
	ctx.Start()
	clock.Advance(time.Millisecond)
	ctx.Served()

	served := rec.LastMinuteServedCount()
	failed := rec.LastMinuteFailedCount()
	if got := rec.LastMinuteTotalCount(); got != served+failed {
		t.Errorf("LastMinuteTotalCount: got %d, want served+failed = %d", got, served+failed)
	}
	if served != 8 || failed != 3 {
		t.Errorf("counts: got served=%d failed=%d, want 8/3", served, failed)
	}
}

func TestRecordStartTwiceOverwrites(t *testing.T) {
	clock := newManualClock(time.Unix(120, 0))
	rec := newTestRecord(t, clock, nil)

	ctx := rec.NewContext()
	ctx.Start()
	clock.Advance(50 * time.Millisecond)
	ctx.Start()
	clock.Advance(3 * time.Millisecond)
	elapsed := ctx.Served()

	// The second Start discarded the first timing.
	if elapsed != (3 * time.Millisecond).Nanoseconds() {
		t.Errorf("Served elapsed: got %d ns, want %d ns", elapsed, (3 * time.Millisecond).Nanoseconds())
	}
	if got := rec.LastMinuteServedCount(); got != 1 {
		t.Errorf("LastMinuteServedCount: got %d, want 1", got)
	}
}

func TestRecordWindowMatchesTickCadence(t *testing.T) {
	clock := newManualClock(time.Unix(120, 0))
	rec, err := NewRequestRecord("requests", 2*time.Second, clock, nil, nil)
	if err != nil {
		t.Fatalf("NewRequestRecord: %v", err)
	}

	ctx := rec.NewContext()
	ctx.Start()
	clock.Advance(time.Millisecond)
	ctx.Served()

	// A 2-second cadence buckets the minute into 30 slots. 29 rotations
	// cover 58 wall-seconds, so the request is still inside the window;
	// the 30th pushes it past the minute and it must be gone.
	for i := 0; i < 29; i++ {
		rec.Tick()
		clock.Advance(2 * time.Second)
	}
	if got := rec.LastMinuteServedCount(); got != 1 {
		t.Errorf("LastMinuteServedCount within the minute: got %d, want 1", got)
	}

	rec.Tick()
	if got := rec.LastMinuteServedCount(); got != 0 {
		t.Errorf("LastMinuteServedCount after a full minute: got %d, want 0", got)
	}
}

func TestRecordRejectsInvalidTick(t *testing.T) {
	if _, err := NewRequestRecord("requests", 7*time.Second, nil, nil, nil); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("NewRequestRecord(7s tick): expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestRecordRollupOncePerMinute(t *testing.T) {
	clock := newManualClock(time.Unix(120, 0))
	sink := &recordingRollupSink{}
	rec := newTestRecord(t, clock, sink)

	// Sixty-one 1-second ticks spanning exactly one minute boundary. The
	// first tick emits (cold start) and the boundary crossing emits once;
	// the 59 ticks in between rotate without emitting.
	for i := 0; i < 61; i++ {
		rec.Tick()
		clock.Advance(time.Second)
	}

	if len(sink.rollups) != 2 {
		t.Fatalf("rollups: got %d, want 2", len(sink.rollups))
	}
	if sink.timestamps[0] != 120 || sink.timestamps[1] != 180 {
		t.Errorf("rollup timestamps: got %v, want [120 180]", sink.timestamps)
	}
}

func TestRecordRollupValues(t *testing.T) {
	clock := newManualClock(time.Unix(120, 0))
	sink := &recordingRollupSink{}
	rec := newTestRecord(t, clock, sink)

	ctx := rec.NewContext()
	ctx.Start()
	clock.Advance(10 * time.Millisecond)
	ctx.Served()
	ctx.Start()
	clock.Advance(30 * time.Millisecond)
	ctx.Failed()

	rec.Tick()

	if len(sink.rollups) != 1 {
		t.Fatalf("rollups: got %d, want 1", len(sink.rollups))
	}
	r := sink.rollups[0]
	if r.Name != "requests" {
		t.Errorf("rollup name: got %q, want %q", r.Name, "requests")
	}
	if r.TotalCount != 2 || r.ServedCount != 1 || r.FailedCount != 1 {
		t.Errorf("rollup counts: got total=%d served=%d failed=%d, want 2/1/1", r.TotalCount, r.ServedCount, r.FailedCount)
	}
	if r.TotalTime != 40 {
		t.Errorf("rollup total time: got %v, want 40", r.TotalTime)
	}
	if r.MaxTime != 30 {
		t.Errorf("rollup max time: got %v, want 30", r.MaxTime)
	}
	if r.AvgTime != 20 {
		t.Errorf("rollup avg time: got %v, want 20", r.AvgTime)
	}
}

func TestRecordConcurrentMarks(t *testing.T) {
	clock := newManualClock(time.Unix(120, 0))
	rec := newTestRecord(t, clock, nil)

	const workers = 50
	const perWorker = 200

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()
			ctx := rec.NewContext()
			for j := 0; j < perWorker; j++ {
				ctx.Start()
				if (n+j)%5 == 0 {
					ctx.Failed()
				} else {
					ctx.Served()
				}
			}
		}(i)
	}
	wg.Wait()

	if got := rec.LastMinuteTotalCount(); got != workers*perWorker {
		t.Errorf("LastMinuteTotalCount: got %d, want %d", got, workers*perWorker)
	}
	failed := rec.LastMinuteFailedCount()
	served := rec.LastMinuteServedCount()
	if failed != workers*perWorker/5 {
		t.Errorf("LastMinuteFailedCount: got %d, want %d", failed, workers*perWorker/5)
	}
	if served+failed != workers*perWorker {
		t.Errorf("served+failed: got %d, want %d", served+failed, workers*perWorker)
	}
	if got := rec.Timer().Calls(); got != workers*perWorker {
		t.Errorf("Timer calls: got %d, want %d", got, workers*perWorker)
	}
}

func BenchmarkRecordServed(b *testing.B) {
	rec, err := NewRequestRecord("bench", time.Second, nil, nil, nil)
	if err != nil {
		b.Fatalf("NewRequestRecord: %v", err)
	}
	ctx := rec.NewContext()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx.Start()
		ctx.Served()
	}
}
