package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initConnectionMetrics() {
	r.ConnectionState = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nodewire_connection_state",
			Help: "Current connection state (1 for the active state, 0 otherwise)",
		},
		[]string{"state"}, // idle, connecting, open, closing, closed
	)

	r.ConnectsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "nodewire_connection_opens_total",
			Help: "Total number of successful connection opens",
		},
	)

	r.ReconnectAttemptsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "nodewire_connection_reconnect_attempts_total",
			Help: "Total number of reconnect attempts scheduled after a drop",
		},
	)

	r.HeartbeatsSentTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "nodewire_connection_heartbeats_sent_total",
			Help: "Total number of heartbeat probes sent",
		},
	)

	r.MessagesReceivedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodewire_connection_messages_received_total",
			Help: "Total number of inbound messages by kind",
		},
		[]string{"kind"},
	)

	r.MessagesSentTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodewire_connection_messages_sent_total",
			Help: "Total number of outbound messages by kind",
		},
		[]string{"kind"},
	)

	r.SendFailuresTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "nodewire_connection_send_failures_total",
			Help: "Total number of sends rejected or failed by the transport",
		},
	)
}
