// Package metrics exposes the bot's prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "copperbot"

// Metrics holds the collectors and the registry they are registered with.
type Metrics struct {
	Registry *prometheus.Registry

	updates         *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
	gateDecisions   *prometheus.CounterVec
	flowTransitions *prometheus.CounterVec
	apiRequests     *prometheus.CounterVec
	apiDuration     *prometheus.HistogramVec
	sessions        prometheus.Gauge
	activeFlows     prometheus.Gauge
	rateLimited     prometheus.Counter
}

// New registers every collector with a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "updates_total",
			Help:      "Telegram updates handled, by kind and outcome.",
		}, []string{"kind", "status"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "update_duration_seconds",
			Help:      "Time spent handling one update.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"kind"}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Gatekeeper decisions.",
		}, []string{"decision"}),
		flowTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "transitions_total",
			Help:      "Flow stage transitions; an empty stage means start or end.",
		}, []string{"owner", "from", "to"}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "requests_total",
			Help:      "Payments API calls by operation and HTTP status.",
		}, []string{"op", "code"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "request_duration_seconds",
			Help:      "Payments API call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"op"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "stored",
			Help:      "Sessions currently held by the session store.",
		}),
		activeFlows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "active",
			Help:      "Chats with a flow in progress.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "rate_limited_total",
			Help:      "Updates dropped by the per-user rate limit.",
		}),
	}
	m.Registry.MustRegister(
		m.updates,
		m.handlerDuration,
		m.gateDecisions,
		m.flowTransitions,
		m.apiRequests,
		m.apiDuration,
		m.sessions,
		m.activeFlows,
		m.rateLimited,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveUpdate records one handled update.
func (m *Metrics) ObserveUpdate(kind string, err error, took time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "fail"
	}
	m.updates.WithLabelValues(kind, status).Inc()
	m.handlerDuration.WithLabelValues(kind).Observe(took.Seconds())
}

// GateDecision counts one gatekeeper outcome.
func (m *Metrics) GateDecision(decision string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(decision).Inc()
}

// FlowTransition counts a stage change and tracks active flows.
func (m *Metrics) FlowTransition(owner, from, to string) {
	if m == nil {
		return
	}
	m.flowTransitions.WithLabelValues(owner, from, to).Inc()
	switch {
	case from == "" && to != "":
		m.activeFlows.Inc()
	case from != "" && to == "":
		m.activeFlows.Dec()
	}
}

// PaymentsRequest records one payments API call. code is "error" when no
// response arrived.
func (m *Metrics) PaymentsRequest(op string, status int, took time.Duration, _ error) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.apiRequests.WithLabelValues(op, code).Inc()
	m.apiDuration.WithLabelValues(op).Observe(took.Seconds())
}

// SetSessions sets the stored sessions gauge.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// RateLimited counts a dropped update.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// RegisterCounterFunc exposes an externally maintained monotonic counter,
// such as the sender dispatcher totals.
func (m *Metrics) RegisterCounterFunc(subsystem, name, help string, fn func() float64) error {
	if m == nil {
		return nil
	}
	return m.Registry.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, fn))
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
