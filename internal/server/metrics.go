package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the server's Prometheus surface, registered on its own
// registry so tests can run servers side by side.
type Metrics struct {
	registry *prometheus.Registry

	ActiveConnections prometheus.Gauge
	ActiveRooms       prometheus.Gauge
	SeatedPlayers     prometheus.Gauge
	MessagesReceived  *prometheus.CounterVec
	ErrorsSent        *prometheus.CounterVec
	GamesStarted      prometheus.Counter
	GamesCompleted    prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "decree_active_connections",
			Help: "Open WebSocket connections.",
		}),
		ActiveRooms: factory.NewGauge(prometheus.GaugeOpts{
			Name: "decree_active_rooms",
			Help: "Rooms currently alive.",
		}),
		SeatedPlayers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "decree_seated_players",
			Help: "Sessions seated in rooms, disconnected included.",
		}),
		MessagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "decree_messages_received_total",
			Help: "Inbound messages by type.",
		}, []string{"type"}),
		ErrorsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "decree_errors_sent_total",
			Help: "Error events sent by code.",
		}, []string{"code"}),
		GamesStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "decree_games_started_total",
			Help: "Games started.",
		}),
		GamesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "decree_games_completed_total",
			Help: "Games that reached game over.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
