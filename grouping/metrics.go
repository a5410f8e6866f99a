package grouping

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grouping_strategy_registrations_total",
		Help: "Total strategy registrations by identifier",
	}, []string{"identifier"})

	dispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grouping_strategy_dispatches_total",
		Help: "Total top-level strategy dispatches by outcome",
	}, []string{"outcome"})

	nestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grouping_nested_strategy_calls_total",
		Help: "Total nested strategy invocations by identifier",
	}, []string{"identifier"})
)
