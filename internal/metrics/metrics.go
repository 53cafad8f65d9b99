// Prometheus collectors of Tracker.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tracker"

// Handshake results reported on handshakes_total.
const (
	HandshakeAccepted     = "accepted"
	HandshakeMissingToken = "missing_token"
	HandshakeMalformed    = "malformed"
	HandshakeExpired      = "expired"
	HandshakeInvalid      = "invalid"
	HandshakeUnknownUser  = "unknown_user"
	HandshakeDenied       = "denied"
	HandshakeLookupError  = "lookup_error"
	HandshakeShutdown     = "shutdown"
)

// Delivery results reported on deliveries_total.
const (
	DeliveryOK         = "ok"
	DeliverySuppressed = "suppressed"
	DeliveryTimeout    = "timeout"
	DeliveryFailed     = "failed"
)

// Metrics groups every collector Tracker exports.
type Metrics struct {
	SessionsActive  prometheus.Gauge
	Handshakes      *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
	Deliveries      *prometheus.CounterVec
}

// New creates the collectors and registers them on registerer.
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of websocket sessions currently joined to a group.",
		}),
		Handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_total",
			Help:      "Websocket handshakes by result.",
		}, []string{"result"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Broadcast events published by kind.",
		}, []string{"kind"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Per session deliveries of broadcast events by result.",
		}, []string{"result"}),
	}
	registerer.MustRegister(m.SessionsActive, m.Handshakes, m.EventsPublished, m.Deliveries)
	return m
}

// NewNop returns collectors registered nowhere.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
