package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_cache_hits_total",
		Help: "Cache lookups that found an entry",
	})

	MissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_cache_misses_total",
		Help: "Cache lookups that found nothing",
	})

	SetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_cache_sets_total",
		Help: "Cache writes admitted",
	})
)
