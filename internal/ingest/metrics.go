package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueDepth tracks the number of frames waiting per queue.
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "polykalshi_ingest_queue_depth",
			Help: "Number of frames currently queued",
		},
		[]string{"queue"},
	)

	// FramesDroppedTotal tracks frames dropped on overflow.
	FramesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polykalshi_ingest_frames_dropped_total",
			Help: "Total number of frames dropped due to queue overflow",
		},
		[]string{"queue"},
	)

	// FramesConsumedTotal tracks frames handed to the decoder.
	FramesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polykalshi_ingest_frames_consumed_total",
			Help: "Total number of frames consumed from the queue",
		},
		[]string{"queue"},
	)
)
