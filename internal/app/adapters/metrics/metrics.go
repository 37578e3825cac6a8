package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionState - current session state as its numeric value.
	SessionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_session_state",
		Help: "Current session state (0 disconnected, 1 connecting, 2 authenticating, 3 ready, 4 reconnecting, 5 closed)",
	})

	// MessagesReceived - inbound chat messages per room.
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_received_total",
			Help: "Total number of chat messages received per room",
		},
		[]string{"room"},
	)

	// EventsEmitted - events pushed to the sink per event family.
	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_emitted_total",
			Help: "Total number of events emitted per event type",
		},
		[]string{"event"},
	)

	// OutboundCommands - enqueued outbound protocol commands.
	OutboundCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_outbound_commands_total",
			Help: "Total number of outbound commands enqueued per command",
		},
		[]string{"command"},
	)

	// MalformedLines - inbound lines dropped by the parser.
	MalformedLines = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_malformed_lines_total",
		Help: "Total number of inbound lines dropped as malformed",
	})

	// RoomMembers - tracked membership size per room.
	RoomMembers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_room_members",
			Help: "Current number of tracked members per room",
		},
		[]string{"room"},
	)

	// DeviceFlowPolls - token endpoint polls during device authorization.
	DeviceFlowPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_device_flow_polls_total",
		Help: "Total number of device flow token polls",
	})

	// AuthFailures - terminal device flow failures per reason.
	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Total number of terminal auth flow failures per reason",
		},
		[]string{"reason"},
	)
)
