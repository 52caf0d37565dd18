package broadcast

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClientsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polykalshi_broadcast_clients_connected",
		Help: "Currently connected egress clients",
	})

	FramesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polykalshi_broadcast_frames_sent_total",
		Help: "Frames fanned out to clients, by frame type",
	}, []string{"type"})

	SendFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_broadcast_send_failures_total",
		Help: "Client sends that failed or timed out",
	})

	DisconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polykalshi_broadcast_disconnects_total",
		Help: "Client disconnects, by reason",
	}, []string{"reason"})

	IndexRebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_broadcast_index_rebuilds_total",
		Help: "Subscription index cache rebuilds",
	})
)
