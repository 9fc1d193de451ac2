// Package metrics exposes auth activity as prometheus counters.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	auth "github.com/goliatone/go-keepin-auth"
	"github.com/goliatone/go-keepin-auth/activitymap"
)

// Sink is an auth.ActivitySink that counts events by action and outcome.
type Sink struct {
	events   *prometheus.CounterVec
	lastSeen *prometheus.GaugeVec
}

var _ auth.ActivitySink = (*Sink)(nil)

// NewSink creates the collectors and registers them on reg.
func NewSink(reg prometheus.Registerer) *Sink {
	s := &Sink{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keepin_auth_events_total",
				Help: "Total number of auth events by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		lastSeen: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "keepin_auth_event_last_timestamp_seconds",
				Help: "Unix time of the last auth event by action and outcome",
			},
			[]string{"action", "outcome"},
		),
	}

	reg.MustRegister(s.events)
	reg.MustRegister(s.lastSeen)

	return s
}

// Collectors returns the collectors owned by the sink.
func (s *Sink) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.events, s.lastSeen}
}

// Record implements auth.ActivitySink.
func (s *Sink) Record(_ context.Context, event auth.ActivityEvent) error {
	n := activitymap.Normalize(event)
	s.events.WithLabelValues(n.Action, n.Outcome).Inc()
	s.lastSeen.WithLabelValues(n.Action, n.Outcome).Set(float64(n.OccurredAt.Unix()))
	return nil
}
