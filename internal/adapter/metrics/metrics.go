package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	TransformSeconds prometheus.Histogram
	TransformWaiters prometheus.Gauge
	RowsStreamed     prometheus.Counter
	ArchiveFailures  prometheus.Counter
}

// New initializes the metrics against the given registerer. Pass
// prometheus.DefaultRegisterer in main; tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payrollgate",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Total requests by action and outcome.",
		}, []string{"action", "status"}), // status: ok, auth_failed, policy, engine, store, unknown, error
		TransformSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "payrollgate",
			Subsystem: "transform",
			Name:      "seconds",
			Help:      "Wall time of transformation engine invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		TransformWaiters: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "payrollgate",
			Subsystem: "transform",
			Name:      "waiters",
			Help:      "Jobs currently waiting on or holding the global transform lock.",
		}),
		RowsStreamed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "payrollgate",
			Subsystem: "rpc",
			Name:      "rows_streamed_total",
			Help:      "Total result rows streamed back to clients.",
		}),
		ArchiveFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "payrollgate",
			Subsystem: "query",
			Name:      "archive_failures_total",
			Help:      "Best-effort Downloads archival writes that failed.",
		}),
	}
}
