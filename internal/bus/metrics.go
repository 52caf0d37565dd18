package bus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsPublishedTotal tracks published events by name.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polykalshi_bus_events_published_total",
			Help: "Total number of events published on the event bus",
		},
		[]string{"event"},
	)

	// HandlerErrorsTotal tracks handler failures by event name.
	HandlerErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polykalshi_bus_handler_errors_total",
			Help: "Total number of event handler errors",
		},
		[]string{"event"},
	)

	// HandlerDurationSeconds tracks handler execution time.
	HandlerDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polykalshi_bus_handler_duration_seconds",
		Help:    "Event handler execution time",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	})
)
