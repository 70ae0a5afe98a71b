package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "healnest_socket_connections_active",
		Help: "Number of live socket connections attached to the hub.",
	})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healnest_socket_events_total",
		Help: "Inbound socket events dispatched, by event name.",
	}, []string{"event"})

	emitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healnest_socket_emit_failures_total",
		Help: "Outbound emissions dropped (closed connection or full buffer).",
	})
)
