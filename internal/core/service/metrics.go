package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bridge",
		Subsystem: "calls",
		Name:      "active_sessions",
		Help:      "Number of calls currently relayed.",
	})

	framesInbound = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "relay",
		Name:      "frames_inbound_total",
		Help:      "Audio frames forwarded from telephony to the room.",
	})

	framesOutbound = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "relay",
		Name:      "frames_outbound_total",
		Help:      "Audio frames forwarded from the room to telephony.",
	})

	messagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "relay",
		Name:      "messages_dropped_total",
		Help:      "Inbound stream messages skipped as malformed.",
	})
)
