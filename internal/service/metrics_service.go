package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the query
// surface and the reconciliation runs.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	absencesCreated *prometheus.CounterVec
	absencesUpdated *prometheus.CounterVec
	punchMalformed  *prometheus.CounterVec
	tenantWarnings  *prometheus.CounterVec
	batchDuration   prometheus.Histogram
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	absencesCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "absences_created_total",
		Help: "Ledger rows created by reconciliation runs",
	}, []string{"tenant"})

	absencesUpdated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "absences_updated_total",
		Help: "Ledger rows refreshed by reconciliation runs",
	}, []string{"tenant"})

	punchMalformed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "punch_events_malformed_total",
		Help: "Raw punch events dropped during normalization",
	}, []string{"tenant"})

	tenantWarnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenant_unavailable_total",
		Help: "Batch runs that skipped a tenant as unavailable",
	}, []string{"tenant"})

	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "batch_run_duration_seconds",
		Help:    "Wall time of full batch reconciliation runs",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, absencesCreated, absencesUpdated, punchMalformed, tenantWarnings, batchDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		absencesCreated: absencesCreated,
		absencesUpdated: absencesUpdated,
		punchMalformed:  punchMalformed,
		tenantWarnings:  tenantWarnings,
		batchDuration:   batchDuration,
	}
}

// Handler serves the /metrics endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// ObserveHTTPRequest records one HTTP request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveTenantRun records one tenant's reconciliation counters.
func (m *MetricsService) ObserveTenantRun(tenant string, created, updated, malformed int) {
	m.absencesCreated.WithLabelValues(tenant).Add(float64(created))
	m.absencesUpdated.WithLabelValues(tenant).Add(float64(updated))
	m.punchMalformed.WithLabelValues(tenant).Add(float64(malformed))
}

// ObserveTenantWarning counts a tenant skipped as unavailable.
func (m *MetricsService) ObserveTenantWarning(tenant string) {
	m.tenantWarnings.WithLabelValues(tenant).Inc()
}

// ObserveBatchRun records a whole run's duration.
func (m *MetricsService) ObserveBatchRun(duration time.Duration) {
	m.batchDuration.Observe(duration.Seconds())
}
