package polymarket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesDecodedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polykalshi_polymarket_messages_decoded_total",
		Help: "Polymarket messages decoded, by event type",
	}, []string{"event_type"})

	DecodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_polymarket_decode_errors_total",
		Help: "Polymarket frames that failed to decode",
	})

	SnapshotsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_polymarket_snapshots_applied_total",
		Help: "Full orderbook snapshots applied",
	})

	PatchesAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_polymarket_patches_applied_total",
		Help: "price_change patches applied",
	})

	UntrackedFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_polymarket_untracked_frames_total",
		Help: "Frames discarded because their asset is not tracked",
	})

	PatchesWithoutBookTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_polymarket_patches_without_book_total",
		Help: "price_change frames dropped because no snapshot preceded them",
	})

	BooksTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polykalshi_polymarket_books_tracked",
		Help: "Assets with a tracked orderbook",
	})

	FramesReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_polymarket_frames_received_total",
		Help: "Raw WebSocket frames received",
	})

	SubscriptionsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_polymarket_subscriptions_sent_total",
		Help: "Per-asset subscription frames sent",
	})

	ConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polykalshi_polymarket_connection_state",
		Help: "Connection state: 0 disconnected, 1 connecting, 2 subscribing, 3 streaming",
	})
)
