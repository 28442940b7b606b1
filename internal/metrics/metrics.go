package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is the Prometheus namespace for all SDK metrics.
const Namespace = "bosshub"

// Delivery routes reported by the topic router.
const (
	RouteTopic   = "topic"
	RouteGlobal  = "global"
	RouteDropped = "dropped"
)

// Outcome labels shared by publish, reconnect and HTTP metrics.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultSkipped  = "skipped"
	ResultRejected = "rejected"
)

// Metrics holds the SDK's Prometheus collectors.
//
// All methods are safe to call on a nil *Metrics, which records nothing.
// That keeps instrumentation optional for embedders that do not scrape.
type Metrics struct {
	delivered      *prometheus.CounterVec
	decodeFallback prometheus.Counter
	inboxDropped   prometheus.Counter
	published      *prometheus.CounterVec
	reconnects     *prometheus.CounterVec
	connState      prometheus.Gauge
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// New creates and registers the SDK collectors on reg.
//
// Parameters:
//   - reg: Prometheus registerer (uses prometheus.DefaultRegisterer if nil)
//
// Returns:
//   - *Metrics: Registered collectors
//   - error: If a collector with the same name is already registered
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "router",
			Name:      "messages_total",
			Help:      "Inbound MQTT messages by resolution route (topic, global, dropped).",
		}, []string{"route"}),
		decodeFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "router",
			Name:      "raw_payloads_total",
			Help:      "Inbound payloads that were not valid JSON and were delivered as text.",
		}),
		inboxDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "mqtt",
			Name:      "inbox_dropped_total",
			Help:      "Inbound messages dropped because the cooperative inbox was full.",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "mqtt",
			Name:      "publish_total",
			Help:      "Outbound publish attempts by result.",
		}, []string{"result"}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "mqtt",
			Name:      "reconnect_attempts_total",
			Help:      "Reconnect attempts by result.",
		}, []string{"result"}),
		connState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "mqtt",
			Name:      "connection_state",
			Help:      "Connection state: 0 disconnected, 1 connected, 2 reconnecting.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Platform API requests by endpoint and result.",
		}, []string{"endpoint", "result"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Platform API request latency by endpoint.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"endpoint"}),
	}

	collectors := []prometheus.Collector{
		m.delivered, m.decodeFallback, m.inboxDropped, m.published,
		m.reconnects, m.connState, m.requests, m.requestLatency,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// MessageRouted records how an inbound message was resolved.
func (m *Metrics) MessageRouted(route string) {
	if m == nil {
		return
	}
	m.delivered.WithLabelValues(route).Inc()
}

// RawPayload records a payload that fell back to text delivery.
func (m *Metrics) RawPayload() {
	if m == nil {
		return
	}
	m.decodeFallback.Inc()
}

// InboxDropped records a message lost to a full cooperative inbox.
func (m *Metrics) InboxDropped() {
	if m == nil {
		return
	}
	m.inboxDropped.Inc()
}

// Published records an outbound publish outcome.
func (m *Metrics) Published(result string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(result).Inc()
}

// Reconnect records a reconnect attempt outcome.
func (m *Metrics) Reconnect(result string) {
	if m == nil {
		return
	}
	m.reconnects.WithLabelValues(result).Inc()
}

// ConnectionState sets the connection state gauge.
func (m *Metrics) ConnectionState(v int) {
	if m == nil {
		return
	}
	m.connState.Set(float64(v))
}

// Request records a platform API call.
func (m *Metrics) Request(endpoint, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, result).Inc()
	m.requestLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}
