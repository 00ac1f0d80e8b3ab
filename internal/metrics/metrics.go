// Package metrics provides the prometheus collectors exported by the roster service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roster"

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds every collector on a private registry. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	storeOperations *prometheus.CounterVec
	storeDuration   *prometheus.HistogramVec
	migrations      *prometheus.CounterVec
	characters      prometheus.Gauge
	syncFetches     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		storeOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Document store operations by type and status",
		}, []string{"operation", "status"}),
		storeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Time spent reading or writing the document file",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
		migrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migration_changes_total",
			Help:      "Fields changed by the load-time migration pass, by kind",
		}, []string{"kind"}),
		characters: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "characters",
			Help:      "Characters in the most recently loaded document",
		}),
		syncFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_fetches_total",
			Help:      "Provider fetches during character sync by fetch and status",
		}, []string{"fetch", "status"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code",
		}, []string{"method", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveStore records one store operation.
func (m *Metrics) ObserveStore(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.storeOperations.WithLabelValues(operation, status(err)).Inc()
	m.storeDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveMigration records the counts from a migration pass.
func (m *Metrics) ObserveMigration(renamed, backfilled, normalized, repaired int) {
	if m == nil {
		return
	}
	m.migrations.WithLabelValues("renamed").Add(float64(renamed))
	m.migrations.WithLabelValues("backfilled").Add(float64(backfilled))
	m.migrations.WithLabelValues("normalized").Add(float64(normalized))
	m.migrations.WithLabelValues("repaired").Add(float64(repaired))
}

// SetCharacters records the roster size.
func (m *Metrics) SetCharacters(n int) {
	if m == nil {
		return
	}
	m.characters.Set(float64(n))
}

// ObserveSyncFetch records the outcome of one provider fetch.
func (m *Metrics) ObserveSyncFetch(fetch string, err error) {
	if m == nil {
		return
	}
	m.syncFetches.WithLabelValues(fetch, status(err)).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
