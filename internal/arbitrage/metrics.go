package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EvaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_arbitrage_evaluations_total",
		Help: "Pair evaluations run",
	})

	EvaluationDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polykalshi_arbitrage_evaluation_duration_seconds",
		Help:    "Time spent per pair evaluation",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
	})

	OpportunitiesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polykalshi_arbitrage_opportunities_total",
		Help: "Opportunities detected before deduplication",
	}, []string{"direction", "side"})

	AlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_arbitrage_alerts_total",
		Help: "Alerts published after deduplication",
	})

	AlertsSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_arbitrage_alerts_suppressed_total",
		Help: "Alerts suppressed by the dedup window",
	})

	PairsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polykalshi_arbitrage_pairs_active",
		Help: "Registered market pairs",
	})

	SettingsChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polykalshi_arbitrage_settings_changes_total",
		Help: "Settings change requests, by outcome",
	}, []string{"outcome"})
)
