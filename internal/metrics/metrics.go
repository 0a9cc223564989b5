package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scanpay"

// Metrics owns its registry. Nothing is registered on the global default.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	saltedgeRequests  *prometheus.CounterVec
	saltedgeDuration  *prometheus.HistogramVec
	callbacks         *prometheus.CounterVec
	paymentsDetected  *prometheus.CounterVec
	syncAccountErrors prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, route and status.",
		}, []string{"method", "route", "status"}),
		saltedgeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saltedge_requests_total",
			Help:      "Requests sent to the Salt Edge API, by method and status.",
		}, []string{"method", "status"}),
		saltedgeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "saltedge_request_duration_seconds",
			Help:      "Round trip time of Salt Edge API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saltedge_callbacks_total",
			Help:      "Salt Edge callbacks received, by classification.",
		}, []string{"kind"}),
		paymentsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_detected_total",
			Help:      "Transactions classified during sync, by direction.",
		}, []string{"direction"}),
		syncAccountErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_account_errors_total",
			Help:      "Accounts whose transactions could not be synced.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.saltedgeRequests,
		m.saltedgeDuration,
		m.callbacks,
		m.paymentsDetected,
		m.syncAccountErrors,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveRequest(method string, status int, duration time.Duration) {
	m.saltedgeRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.saltedgeDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (m *Metrics) ObserveCallback(kind string) {
	m.callbacks.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObservePayment(direction string) {
	m.paymentsDetected.WithLabelValues(direction).Inc()
}

func (m *Metrics) ObserveSyncAccountError() {
	m.syncAccountErrors.Inc()
}
