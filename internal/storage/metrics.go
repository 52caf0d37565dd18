package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var AlertsStoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "polykalshi_storage_alerts_stored_total",
	Help: "Alerts written to storage, by backend",
}, []string{"backend"})
