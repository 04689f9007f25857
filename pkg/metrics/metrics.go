package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveConnections counts live websocket connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "codeshare_active_connections",
		Help: "Currently open websocket connections.",
	})

	// ActiveRooms counts rooms with at least one member.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "codeshare_active_rooms",
		Help: "Rooms with at least one member.",
	})

	// EventsTotal counts inbound events by name.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codeshare_events_total",
		Help: "Inbound client events by event name.",
	}, []string{"event"})

	// BroadcastsTotal counts outbound room broadcasts.
	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codeshare_broadcasts_total",
		Help: "Messages fanned out to rooms.",
	})

	// ExecutionsTotal counts execution-service calls by outcome.
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codeshare_executions_total",
		Help: "Execution service calls by outcome.",
	}, []string{"outcome"})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
