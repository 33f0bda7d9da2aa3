// Package httpmetrics instruments HTTP handlers with a rolling
// RequestRecord: each request is timed from entry, then marked served
// (status < 500) or failed (status >= 500) on completion.
package httpmetrics

import (
	"net/http"
	"sync"

	"github.com/harwell/rollwin/rolling"
	"github.com/prometheus/client_golang/prometheus"
)

// InFlight tracks requests currently inside instrumented handlers. The
// record's cumulative timer call count deliberately never decrements; live
// concurrency belongs on a gauge.
var InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "rollwin_http_requests_in_flight",
	Help: "Current in-flight instrumented requests",
})

func init() {
	prometheus.MustRegister(InFlight)
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware wraps handlers with timing against rec. Timing contexts are
// pooled: HTTP requests have no worker affinity, so the pool plays the role
// a per-worker reusable context plays in a worker-loop design.
func Middleware(rec *rolling.RequestRecord) func(http.Handler) http.Handler {
	ctxPool := sync.Pool{
		New: func() any {
			return rec.NewContext()
		},
	}
	wwPool := sync.Pool{
		New: func() any {
			return &responseWriter{statusCode: http.StatusOK}
		},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			InFlight.Inc()
			defer InFlight.Dec()

			tc := ctxPool.Get().(*rolling.RequestContext)
			tc.Start()

			ww := wwPool.Get().(*responseWriter)
			ww.ResponseWriter = w
			ww.statusCode = http.StatusOK

			// A panicking handler never reaches the status check below.
			// Count it as failed before handing the panic to whatever
			// recovery middleware sits upstream.
			defer func() {
				if p := recover(); p != nil {
					tc.Failed()
					wwPool.Put(ww)
					ctxPool.Put(tc)
					panic(p)
				}
			}()

			next.ServeHTTP(ww, r)

			if ww.statusCode >= http.StatusInternalServerError {
				tc.Failed()
			} else {
				tc.Served()
			}

			wwPool.Put(ww)
			ctxPool.Put(tc)
		})
	}
}
