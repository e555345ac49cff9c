// Package promsink exposes identity lifecycle activity as Prometheus counters.
package promsink

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	identity "github.com/smartlocal/go-identity"
)

// Sink counts activity events by type. Register it with the identity
// controller and session store via their activity sink options.
type Sink struct {
	events *prometheus.CounterVec
}

var _ identity.ActivitySink = (*Sink)(nil)

// New creates a Sink and registers its collectors with reg.
func New(reg prometheus.Registerer) (*Sink, error) {
	s := &Sink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "lifecycle_events_total",
			Help:      "Identity lifecycle events by type.",
		}, []string{"event"}),
	}

	if reg != nil {
		if err := reg.Register(s.events); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Record implements identity.ActivitySink.
func (s *Sink) Record(_ context.Context, event identity.ActivityEvent) error {
	s.events.WithLabelValues(string(event.EventType)).Inc()
	return nil
}
