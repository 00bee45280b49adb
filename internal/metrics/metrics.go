// Package metrics exposes Prometheus collectors for scrape cycles, records
// and notifications.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "architetti"

// Drop reasons used with RecordsDropped.
const (
	ReasonInvalid  = "invalid"
	ReasonExcluded = "excluded"
	ReasonStore    = "store_error"
)

// Notification results used with Notifications.
const (
	ResultSent   = "sent"
	ResultFailed = "failed"
)

// Metrics holds all watcher collectors on a private registry.
type Metrics struct {
	RecordsScraped *prometheus.CounterVec
	RecordsNew     *prometheus.CounterVec
	RecordsDropped *prometheus.CounterVec
	SourceFailures *prometheus.CounterVec
	Notifications  *prometheus.CounterVec
	CycleDuration  prometheus.Histogram

	registry *prometheus.Registry
}

// New registers every collector on a fresh registry, so several instances
// can coexist in tests.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RecordsScraped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_scraped_total",
			Help:      "Raw items returned by site adapters",
		}, []string{"source"}),
		RecordsNew: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_new_total",
			Help:      "Records inserted as new",
		}, []string{"source"}),
		RecordsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Items dropped before insertion, by reason",
		}, []string{"source", "reason"}),
		SourceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Adapter runs that ended in an error",
		}, []string{"source"}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification attempts, by result",
		}, []string{"result"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one full scrape cycle",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
	}
}

// ObserveCycle records the duration of a completed cycle.
func (m *Metrics) ObserveCycle(d time.Duration) {
	m.CycleDuration.Observe(d.Seconds())
}

// Registry returns the registry backing these collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
