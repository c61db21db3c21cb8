package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hierarchyRecomputes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "readiness",
		Subsystem: "hierarchy",
		Name:      "recomputes_total",
		Help:      "Total number of materialized hierarchy recomputations.",
	})

	hierarchyRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "readiness",
		Subsystem: "hierarchy",
		Name:      "rejected_total",
		Help:      "Rejected hierarchy mutations broken down by reason.",
	}, []string{"reason"})

	flagWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "readiness",
		Subsystem: "flags",
		Name:      "writes_total",
		Help:      "Flag store writes broken down by operation.",
	}, []string{"op"})

	transfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "readiness",
		Subsystem: "transfers",
		Name:      "total",
		Help:      "Person transfers broken down by result.",
	}, []string{"result"})
)

func recordHierarchyRejection(reason string) {
	hierarchyRejections.WithLabelValues(reason).Inc()
}
