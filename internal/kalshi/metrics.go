package kalshi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesDecodedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polykalshi_kalshi_messages_decoded_total",
		Help: "Kalshi frames decoded, by message type",
	}, []string{"type"})

	DecodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_kalshi_decode_errors_total",
		Help: "Kalshi frames that failed to decode",
	})

	SequenceGapsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_kalshi_sequence_gaps_total",
		Help: "Orderbook deltas dropped due to a sequence gap",
	})

	SnapshotsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_kalshi_snapshots_applied_total",
		Help: "Full orderbook snapshots applied",
	})

	DeltasAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_kalshi_deltas_applied_total",
		Help: "Orderbook deltas applied",
	})

	BooksTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polykalshi_kalshi_books_tracked",
		Help: "Markets with a tracked orderbook",
	})

	CommandsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polykalshi_kalshi_commands_sent_total",
		Help: "WebSocket commands sent to the venue, by command",
	}, []string{"cmd"})

	CandleBoundariesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_kalshi_candle_boundaries_total",
		Help: "Candle boundaries crossed by ticker_v2 frames",
	})

	TickerBootstrapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polykalshi_kalshi_ticker_bootstraps_total",
		Help: "REST ticker-state bootstrap attempts, by outcome",
	}, []string{"outcome"})

	VenueErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_kalshi_venue_errors_total",
		Help: "Error frames received from the venue",
	})

	FramesReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polykalshi_kalshi_frames_received_total",
		Help: "Raw WebSocket frames received",
	})

	ConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polykalshi_kalshi_connection_state",
		Help: "Connection state: 0 disconnected, 1 connecting, 2 subscribing, 3 streaming",
	})
)
