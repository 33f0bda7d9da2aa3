package sinks

import (
	"log/slog"

	"github.com/harwell/rollwin/interfaces"
	"github.com/harwell/rollwin/logging"
)

var _ interfaces.RollupSink = (*LogRollup)(nil)

// LogRollup emits one structured log line per rollup, carrying the six
// samples under their canonical names (total_requests.1m and friends) plus
// the wall-clock-second timestamp.
type LogRollup struct {
	logger *slog.Logger
}

// NewLogRollup creates a rollup logger. A nil logger uses the package
// global configured by logging.InitLogger.
func NewLogRollup(logger *slog.Logger) *LogRollup {
	return &LogRollup{logger: logger}
}

// EmitRollup logs the rollup at info level.
func (l *LogRollup) EmitRollup(ts int64, r interfaces.Rollup) {
	attrs := []any{
		"record", r.Name,
		"ts", ts,
		"total_requests.1m", r.TotalCount,
		"served_requests.1m", r.ServedCount,
		"failed_requests.1m", r.FailedCount,
		"concurrent_timer.total.1m", r.TotalTime,
		"concurrent_timer.max.1m", r.MaxTime,
		"concurrent_timer.avg.1m", r.AvgTime,
	}
	if l.logger != nil {
		l.logger.Info("request rollup", attrs...)
		return
	}
	logging.Info("request rollup", attrs...)
}

// Fanout forwards each rollup to every wrapped sink in order, so a record
// can log and export gauges from the same emission.
type Fanout []interfaces.RollupSink

// EmitRollup forwards to all sinks.
func (f Fanout) EmitRollup(ts int64, r interfaces.Rollup) {
	for _, s := range f {
		s.EmitRollup(ts, r)
	}
}
