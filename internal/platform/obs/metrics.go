package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the counters exported by the sync engine.
// Each instance owns its collectors so tests can use a private registry.
type Metrics struct {
	Polls            *prometheus.CounterVec
	TicksDropped     prometheus.Counter
	DisplayEmissions prometheus.Counter
	RouteSyncs       *prometheus.CounterVec
	PushFailures     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vehicle_sync",
			Name:      "plan_polls_total",
			Help:      "Plan fetches by result (ok, dropped).",
		}, []string{"result"}),
		TicksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vehicle_sync",
			Name:      "ticks_dropped_total",
			Help:      "Timer or force-sync signals dropped because a fetch was in flight.",
		}),
		DisplayEmissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vehicle_sync",
			Name:      "display_state_emissions_total",
			Help:      "Distinct display states published.",
		}),
		RouteSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vehicle_sync",
			Name:      "route_syncs_total",
			Help:      "Route synchronizations by outcome (routed, location_only, failed, skipped).",
		}, []string{"outcome"}),
		PushFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vehicle_sync",
			Name:      "push_failures_total",
			Help:      "Swallowed push sink failures by sink.",
		}, []string{"sink"}),
	}
}

// Register adds all collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Polls, m.TicksDropped, m.DisplayEmissions, m.RouteSyncs, m.PushFailures} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
