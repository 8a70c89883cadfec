package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the payments core
type Metrics struct {
	CallbacksTotal *prometheus.CounterVec
	STKPushTotal   *prometheus.CounterVec
	SweepResolved  prometheus.Counter
}

// NewMetrics creates a new metrics instance registered against reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "harambee",
				Subsystem: "payments",
				Name:      "callbacks_total",
				Help:      "Provider callbacks received, by reconcile outcome",
			},
			[]string{"outcome"},
		),
		STKPushTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "harambee",
				Subsystem: "payments",
				Name:      "stk_push_total",
				Help:      "STK push initiations, by result",
			},
			[]string{"result"},
		),
		SweepResolved: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "harambee",
				Subsystem: "payments",
				Name:      "sweep_resolved_total",
				Help:      "Unmatched callbacks credited by the reconciliation sweep",
			},
		),
	}
}
