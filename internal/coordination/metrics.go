package coordination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsStartedTotal tracks coordinated operations begun.
	OperationsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polykalshi_coordination_operations_started_total",
			Help: "Total number of coordinated operations started",
		},
		[]string{"operation_type"},
	)

	// OperationsCommittedTotal tracks operations that fully committed.
	OperationsCommittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polykalshi_coordination_operations_committed_total",
			Help: "Total number of coordinated operations committed",
		},
		[]string{"operation_type"},
	)

	// OperationsFailedTotal tracks operations that failed, by phase.
	OperationsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polykalshi_coordination_operations_failed_total",
			Help: "Total number of coordinated operations failed",
		},
		[]string{"operation_type", "phase"},
	)

	// RollbacksTotal tracks rollback broadcasts.
	RollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polykalshi_coordination_rollbacks_total",
			Help: "Total number of rollback broadcasts",
		},
		[]string{"operation_type"},
	)

	// ExpiredOperationsTotal tracks operations reaped by the sweeper.
	ExpiredOperationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_coordination_expired_operations_total",
		Help: "Total number of pending operations expired by the sweeper",
	})

	// OperationDurationSeconds tracks end-to-end commit latency.
	OperationDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polykalshi_coordination_operation_duration_seconds",
		Help:    "End-to-end duration of committed operations",
		Buckets: prometheus.DefBuckets,
	})
)
