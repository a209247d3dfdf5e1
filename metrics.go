package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-token-auth/middleware/jwtware"
)

// Metrics holds the Prometheus collectors for the auth core
type Metrics struct {
	AuthOutcomesTotal *prometheus.CounterVec
	ActivityTotal     *prometheus.CounterVec
}

var _ ActivitySink = (*Metrics)(nil)

// NewMetrics creates and registers the collectors. A nil registerer skips
// registration.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenauth_request_outcomes_total",
				Help: "Authentication middleware outcomes by final state and reason",
			},
			[]string{"state", "reason"},
		),
		ActivityTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenauth_activity_events_total",
				Help: "Login, signup and logout events",
			},
			[]string{"event"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(m.AuthOutcomesTotal, m.ActivityTotal)
	}

	return m
}

// Record implements ActivitySink.
func (m *Metrics) Record(_ context.Context, event ActivityEvent) error {
	m.ActivityTotal.WithLabelValues(string(event.EventType)).Inc()
	return nil
}

// ObserveOutcome is a jwtware.OutcomeListener.
func (m *Metrics) ObserveOutcome(_ *fiber.Ctx, outcome jwtware.Outcome) {
	m.AuthOutcomesTotal.WithLabelValues(string(outcome.State), string(outcome.Reason)).Inc()
}
