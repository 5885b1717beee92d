package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	appliesTotal    *prometheus.CounterVec
	cancelsTotal    *prometheus.CounterVec
	statusPolls     *prometheus.CounterVec
}

// NewMetrics initialises the registry and the base metric set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "astromeet_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astromeet_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	applies := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "astromeet_matching_applies_total",
		Help: "Apply attempts by result (ok, rejected, error).",
	}, []string{"result"})
	cancels := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "astromeet_matching_cancels_total",
		Help: "Cancel attempts by result (ok, rejected, error).",
	}, []string{"result"})
	polls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "astromeet_matching_status_polls_total",
		Help: "Status polls by resolved display status.",
	}, []string{"status"})
	registry.MustRegister(requests, duration, applies, cancels, polls)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		appliesTotal:    applies,
		cancelsTotal:    cancels,
		statusPolls:     polls,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveApply counts an apply attempt by result label.
func (m *Metrics) ObserveApply(result string) {
	if m != nil {
		m.appliesTotal.WithLabelValues(result).Inc()
	}
}

// ObserveCancel counts a cancel attempt by result label.
func (m *Metrics) ObserveCancel(result string) {
	if m != nil {
		m.cancelsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveStatus counts a status poll by display status.
func (m *Metrics) ObserveStatus(status string) {
	if m != nil {
		m.statusPolls.WithLabelValues(status).Inc()
	}
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
