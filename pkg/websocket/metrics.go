package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReconnectAttemptsTotal tracks venue reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_ws_reconnect_attempts_total",
		Help: "Total number of venue WebSocket reconnection attempts",
	})

	// ReconnectFailuresTotal tracks venue reconnection failures.
	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_ws_reconnect_failures_total",
		Help: "Total number of venue WebSocket reconnection failures",
	})
)
