package http

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"

	"github.com/sawpanic/astrorun/internal/domain/ephemeris"
)

// MetricsRegistry holds all Prometheus metrics for AstroRun
type MetricsRegistry struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Ephemeris evaluation metrics
	Evaluations        *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec

	// Provider guard metrics
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	RateLimitedTotal *prometheus.CounterVec
	CircuitState     *prometheus.GaugeVec

	StreamClients prometheus.Gauge
}

// NewMetricsRegistry creates a registry with all AstroRun metrics and the
// Go runtime collectors. It does not touch the global default registry.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astrorun_http_requests_total",
				Help: "Total HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "astrorun_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"route", "method"},
		),

		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astrorun_evaluations_total",
				Help: "Ephemeris evaluations by provider, body and result",
			},
			[]string{"provider", "body", "result"},
		),

		EvaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "astrorun_evaluation_duration_seconds",
				Help:    "Duration of single-body evaluations in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"provider"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astrorun_provider_cache_hits_total",
				Help: "Provider cache hits",
			},
			[]string{"provider"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astrorun_provider_cache_misses_total",
				Help: "Provider cache misses",
			},
			[]string{"provider"},
		),

		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astrorun_provider_rate_limited_total",
				Help: "Provider calls rejected by the rate limiter",
			},
			[]string{"provider"},
		),

		CircuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "astrorun_provider_circuit_state",
				Help: "Provider circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"provider"},
		),

		StreamClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "astrorun_stream_clients",
				Help: "Connected /ws/now clients",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.Evaluations,
		m.EvaluationDuration,
		m.CacheHits,
		m.CacheMisses,
		m.RateLimitedTotal,
		m.CircuitState,
		m.StreamClients,
	)

	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *MetricsRegistry) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one served request.
func (m *MetricsRegistry) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(route, method, statusClass(status)).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveEvaluation matches ephemeris.Observer.
func (m *MetricsRegistry) ObserveEvaluation(provider string, body ephemeris.Body, elapsed time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.Evaluations.WithLabelValues(provider, body.String(), result).Inc()
	m.EvaluationDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// CacheResult implements guards.Observer.
func (m *MetricsRegistry) CacheResult(provider string, hit bool) {
	if hit {
		m.CacheHits.WithLabelValues(provider).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(provider).Inc()
}

// RateLimited implements guards.Observer.
func (m *MetricsRegistry) RateLimited(provider string) {
	m.RateLimitedTotal.WithLabelValues(provider).Inc()
}

// BreakerState implements guards.Observer.
func (m *MetricsRegistry) BreakerState(provider string, state gobreaker.State) {
	m.CircuitState.WithLabelValues(provider).Set(circuitGaugeValue(state))
}

// StreamOpened implements handlers.StreamObserver.
func (m *MetricsRegistry) StreamOpened() { m.StreamClients.Inc() }

// StreamClosed implements handlers.StreamObserver.
func (m *MetricsRegistry) StreamClosed() { m.StreamClients.Dec() }

// MetricsHandler returns an HTTP handler for Prometheus metrics
func (m *MetricsRegistry) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func circuitGaugeValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
