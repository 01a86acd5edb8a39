// Package telemetry records how gpsearch is used: Prometheus metrics for index
// operations and an in-memory log of query patterns. Nothing is reported
// externally unless a metrics endpoint is configured.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aman-CERP/gpsearch/internal/search"
)

// Metrics exposes index operations as Prometheus metrics.
// It implements search.Observer.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	Degraded          *prometheus.GaugeVec
	ReindexedTotal    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// Verify interface implementation at compile time
var _ search.Observer = (*Metrics)(nil)

// NewMetrics registers the metrics with a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return NewMetricsWith(reg, reg)
}

// NewMetricsWith registers the metrics with reg and serves them from gatherer.
func NewMetricsWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{gatherer: gatherer}

	m.OperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpsearch_index_operations_total",
			Help: "Total number of index operations by outcome",
		},
		[]string{"index", "operation", "outcome"},
	)

	m.OperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gpsearch_index_operation_duration_seconds",
			Help:    "Duration of index operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"index", "operation"},
	)

	m.Degraded = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gpsearch_index_degraded",
			Help: "1 when the backend lacks the search module",
		},
		[]string{"index"},
	)

	m.ReindexedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpsearch_reindexed_records_total",
			Help: "Total number of records written by bulk reindexing",
		},
		[]string{"doctype"},
	)

	return m
}

// ObserveOperation implements search.Observer.
func (m *Metrics) ObserveOperation(index, op, outcome string, d time.Duration) {
	m.OperationsTotal.WithLabelValues(index, op, outcome).Inc()
	m.OperationDuration.WithLabelValues(index, op).Observe(d.Seconds())
}

// SetDegraded implements search.Observer.
func (m *Metrics) SetDegraded(index string, degraded bool) {
	v := 0.0
	if degraded {
		v = 1
	}
	m.Degraded.WithLabelValues(index).Set(v)
}

// RecordReindexed counts records written by a reindex run.
func (m *Metrics) RecordReindexed(doctype string, n int) {
	m.ReindexedTotal.WithLabelValues(doctype).Add(float64(n))
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
