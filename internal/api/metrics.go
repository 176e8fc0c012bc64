package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalambet/nasagw/internal/nasa"
	"github.com/kalambet/nasagw/internal/proxy"
	"github.com/kalambet/nasagw/internal/upstream"
)

const (
	namespace      = "nasagw"
	unmatchedRoute = "unmatched"
	// assistantFeature labels chat completion calls alongside the NASA feeds.
	assistantFeature = "Assistant"
)

// Metrics holds the gateway's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	enhanceRuns      *prometheus.CounterVec
}

// NewMetrics registers the gateway collectors on registry. A nil registry
// gets a fresh private one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"route"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Outbound upstream calls by feature and outcome.",
		}, []string{"feature", "outcome"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Outbound upstream call latency by feature.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"feature"}),
		enhanceRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enhance_runs_total",
			Help:      "Image enhancement process runs by outcome.",
		}, []string{"outcome"}),
	}
	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.upstreamRequests,
		m.upstreamDuration,
		m.enhanceRuns,
	)
	return m
}

// ObserveUpstream records one NASA call. It satisfies nasa.Observer.
func (m *Metrics) ObserveUpstream(feature nasa.Feature, outcome string, elapsed time.Duration) {
	m.observeUpstream(string(feature), outcome, elapsed)
}

func (m *Metrics) observeUpstream(feature, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(feature, outcome).Inc()
	m.upstreamDuration.WithLabelValues(feature).Observe(elapsed.Seconds())
}

// ObserveEnhance records one enhancement run.
func (m *Metrics) ObserveEnhance(outcome string) {
	if m == nil {
		return
	}
	m.enhanceRuns.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// instrument records request count and latency under the matched chi route
// pattern so that path parameters do not inflate label cardinality.
func (m *Metrics) instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newStatusRecorder(w)

		next.ServeHTTP(rw, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" && !strings.HasSuffix(p, "*") {
				route = p
			}
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rw.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// assistantOutcome classifies a chat completion result the way
// upstream.Outcome classifies NASA calls.
func assistantOutcome(err error) string {
	var ue *proxy.UpstreamError
	if errors.As(err, &ue) {
		return fmt.Sprintf("status_%dxx", ue.Status/100)
	}
	return upstream.Outcome(err)
}
