package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus series exposed on /metrics: HTTP traffic
// plus the order and settlement outcome counters.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	salesSettled    prometheus.Counter
	salesRejected   *prometheus.CounterVec
	ordersCreated   prometheus.Counter
}

// NewMetrics builds a private registry with the HTTP and domain series.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	settled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odyssey_sales_settled_total",
		Help: "Sales committed by the settlement gate.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_sales_rejected_total",
		Help: "Settlement attempts rejected, by rejection kind.",
	}, []string{"kind"})
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odyssey_orders_created_total",
		Help: "Production orders persisted.",
	})
	registry.MustRegister(requests, duration, settled, rejected, created)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		salesSettled:    settled,
		salesRejected:   rejected,
		ordersCreated:   created,
	}
}

// SaleSettled counts one committed sale.
func (m *Metrics) SaleSettled() {
	if m == nil {
		return
	}
	m.salesSettled.Inc()
}

// SaleRejected counts one rejected settlement.
func (m *Metrics) SaleRejected(kind string) {
	if m == nil {
		return
	}
	m.salesRejected.WithLabelValues(kind).Inc()
}

// OrderCreated counts one persisted order.
func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// Handler serves the registry for /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per route pattern.
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

// Registerer exposes the registry so other packages can add collectors.
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
