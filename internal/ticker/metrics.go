package ticker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polykalshi_ticker_published_total",
		Help: "Ticker snapshots published, by platform",
	}, []string{"platform"})

	SuppressedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polykalshi_ticker_suppressed_total",
		Help: "Publications suppressed as byte-identical, by platform",
	}, []string{"platform"})

	InvalidTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polykalshi_ticker_invalid_total",
		Help: "Summaries dropped by validation, by platform",
	}, []string{"platform"})

	ForceDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polykalshi_ticker_force_drops_total",
		Help: "Force publications dropped due to a full queue, by platform",
	}, []string{"platform"})
)
