// ABOUTME: Prometheus instrumentation for the dev backend.
// ABOUTME: Wires engine hooks into counters and serves the scrape endpoint.

package devserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hcnode/cui/internal/conversation"
)

// metrics holds the instruments for one server instance. Each server
// carries its own registry so several can run side by side in tests.
type metrics struct {
	registry        *prometheus.Registry
	turnsStarted    prometheus.Counter
	eventsPublished prometheus.Counter
	activeTurns     prometheus.Gauge
	decisions       *prometheus.CounterVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &metrics{
		registry: registry,
		turnsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "cui_turns_started_total",
			Help: "Conversation turns started.",
		}),
		eventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "cui_stream_events_total",
			Help: "Events published to stream subscribers.",
		}),
		activeTurns: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cui_active_turns",
			Help: "Turns currently streaming.",
		}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cui_permission_decisions_total",
			Help: "Permission decisions received over HTTP, by action.",
		}, []string{"action"}),
	}
}

// engineHooks adapts the instruments to engine lifecycle callbacks.
func (m *metrics) engineHooks() conversation.Hooks {
	return conversation.Hooks{
		TurnStarted: func() {
			m.turnsStarted.Inc()
			m.activeTurns.Inc()
		},
		TurnEnded: func() {
			m.activeTurns.Dec()
		},
		EventPublished: func() {
			m.eventsPublished.Inc()
		},
	}
}

// decisionRecorded counts one permission decision by action.
func (m *metrics) decisionRecorded(action string) {
	m.decisions.WithLabelValues(action).Inc()
}

// handler returns the scrape endpoint for this server's registry.
func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
