// Package metrics exposes Prometheus collectors for mutations, sessions,
// reminders and HTTP traffic.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"todoflow/domain"
)

const namespace = "todoflow"

// Metrics holds every collector of the service
type Metrics struct {
	registry *prometheus.Registry

	mutations        *prometheus.CounterVec
	mutationDuration *prometheus.HistogramVec
	reminderOps      *prometheus.CounterVec
	reminderDelivery *prometheus.CounterVec
	sessions         prometheus.Gauge
	watchRestarts    prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	wsClients        prometheus.Gauge
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Todo mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		mutationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mutation_duration_seconds",
			Help:      "Time from accepting a mutation to its result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		reminderOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_operations_total",
			Help:      "Reminder schedule and cancel calls by outcome.",
		}, []string{"action", "outcome"}),
		reminderDelivery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_deliveries_total",
			Help:      "Due reminders handed to notifiers, by outcome.",
		}, []string{"outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Owners with a live session.",
		}),
		watchRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_restarts_total",
			Help:      "Subscriptions restarted after a failure.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected WebSocket clients.",
		}),
	}

	m.registry.MustRegister(
		m.mutations, m.mutationDuration, m.reminderOps, m.reminderDelivery,
		m.sessions, m.watchRestarts, m.httpRequests, m.httpDuration, m.wsClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveMutation counts a finished mutation
func (m *Metrics) ObserveMutation(op string, err error, elapsed time.Duration) {
	m.mutations.WithLabelValues(op, Outcome(err)).Inc()
	m.mutationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveReminder counts a schedule or cancel call
func (m *Metrics) ObserveReminder(action string, err error) {
	m.reminderOps.WithLabelValues(action, Outcome(err)).Inc()
}

// ObserveDelivery counts a reminder delivery attempt
func (m *Metrics) ObserveDelivery(err error) {
	m.reminderDelivery.WithLabelValues(Outcome(err)).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	m.sessions.Set(float64(n))
}

func (m *Metrics) ObserveWatchRestart() {
	m.watchRestarts.Inc()
}

func (m *Metrics) SetWebSocketClients(n int) {
	m.wsClients.Set(float64(n))
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Outcome maps an error to a low-cardinality label
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrBlankTitle), errors.Is(err, domain.ErrMissingID):
		return "invalid"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, domain.ErrQueueFull):
		return "rejected"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence_error"
	default:
		return "error"
	}
}
