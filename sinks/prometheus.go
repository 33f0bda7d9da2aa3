// Package sinks provides the concrete duration and rollup sinks the rolling
// engine publishes through: a Prometheus histogram for per-call durations,
// Prometheus gauges mirroring the per-minute rollup, and a structured-log
// rollup emitter.
package sinks

import (
	"github.com/harwell/rollwin/interfaces"
	"github.com/prometheus/client_golang/prometheus"
)

// Compile-time contract checks
var (
	_ interfaces.DurationSink = (*DurationHistogram)(nil)
	_ interfaces.RollupSink   = (*RollupGauges)(nil)
)

// DurationHistogram feeds timer durations into a Prometheus histogram. The
// observed values are in the owning timer's duration unit (milliseconds for
// request records).
type DurationHistogram struct {
	histogram prometheus.Histogram
}

// NewDurationHistogram creates and registers a histogram named
// <name>_duration_ms. A nil registerer uses the default registry.
func NewDurationHistogram(reg prometheus.Registerer, name string) (*DurationHistogram, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    name + "_duration_ms",
		Help:    "Request handling time in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})
	if err := reg.Register(h); err != nil {
		return nil, err
	}
	return &DurationHistogram{histogram: h}, nil
}

// Update records one duration.
func (d *DurationHistogram) Update(duration int64) {
	d.histogram.Observe(float64(duration))
}

// RollupGauges mirrors the six per-minute rollup samples onto Prometheus
// gauges labeled by record name, so scrapers see the same numbers the
// rollup log carries.
type RollupGauges struct {
	totalCount  *prometheus.GaugeVec
	servedCount *prometheus.GaugeVec
	failedCount *prometheus.GaugeVec
	totalTime   *prometheus.GaugeVec
	maxTime     *prometheus.GaugeVec
	avgTime     *prometheus.GaugeVec
}

// NewRollupGauges creates and registers the six rollup gauges. A nil
// registerer uses the default registry.
func NewRollupGauges(reg prometheus.Registerer) (*RollupGauges, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := []string{"record"}
	g := &RollupGauges{
		totalCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rollwin_total_requests_1m",
			Help: "Total requests in the last minute",
		}, labels),
		servedCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rollwin_served_requests_1m",
			Help: "Served requests in the last minute",
		}, labels),
		failedCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rollwin_failed_requests_1m",
			Help: "Failed requests in the last minute",
		}, labels),
		totalTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rollwin_total_time_ms_1m",
			Help: "Summed handling time in the last minute (ms)",
		}, labels),
		maxTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rollwin_max_time_ms_1m",
			Help: "Longest single handling time in the last minute (ms)",
		}, labels),
		avgTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rollwin_avg_time_ms_1m",
			Help: "Average handling time in the last minute (ms)",
		}, labels),
	}
	for _, c := range []prometheus.Collector{
		g.totalCount, g.servedCount, g.failedCount, g.totalTime, g.maxTime, g.avgTime,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// EmitRollup publishes one rollup onto the gauges.
func (g *RollupGauges) EmitRollup(_ int64, r interfaces.Rollup) {
	g.totalCount.WithLabelValues(r.Name).Set(float64(r.TotalCount))
	g.servedCount.WithLabelValues(r.Name).Set(float64(r.ServedCount))
	g.failedCount.WithLabelValues(r.Name).Set(float64(r.FailedCount))
	g.totalTime.WithLabelValues(r.Name).Set(r.TotalTime)
	g.maxTime.WithLabelValues(r.Name).Set(r.MaxTime)
	g.avgTime.WithLabelValues(r.Name).Set(r.AvgTime)
}
