package polymarket

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/bus"
	"github.com/RohitDayanand/polykalshi-client/internal/ingest"
	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// ForcePublisher lets the decoder request an immediate ticker publish after
// a full snapshot replaces a book.
type ForcePublisher interface {
	ForcePublish(platform types.Platform, marketKey string)
}

// DecoderConfig holds decoder dependencies.
type DecoderConfig struct {
	Store  *Store
	Bus    *bus.EventBus
	Logger *zap.Logger
	Force  ForcePublisher
}

// Decoder consumes raw Polymarket frames off the ingest queue, maintains
// the book store, and publishes typed events. Single writer for the store.
type Decoder struct {
	store  *Store
	bus    *bus.EventBus
	logger *zap.Logger
	force  ForcePublisher
}

// NewDecoder creates a decoder.
func NewDecoder(cfg DecoderConfig) *Decoder {
	return &Decoder{
		store:  cfg.Store,
		bus:    cfg.Bus,
		logger: cfg.Logger,
		force:  cfg.Force,
	}
}

// Handle is the ingest.FrameHandler for the Polymarket queue.
func (d *Decoder) Handle(frame ingest.Frame) {
	msgs, err := parseFrames(frame.Data)
	if err != nil {
		DecodeErrorsTotal.Inc()
		d.logger.Warn("undecodable-frame", zap.Error(err))
		return
	}

	ctx := context.Background()

	for _, msg := range msgs {
		switch msg.EventType {
		case eventTypeBook:
			d.handleBook(ctx, msg)
		case eventTypePriceChange:
			d.handlePriceChange(ctx, msg)
		case eventTypeTickSizeChange:
			d.handleTickSizeChange(ctx, msg)
		case eventTypeLastTradePrice:
			d.handleLastTrade(ctx, msg)
		default:
			d.logger.Debug("unknown-event-type", zap.String("event-type", msg.EventType))
			continue
		}

		MessagesDecodedTotal.WithLabelValues(msg.EventType).Inc()
	}
}

func (d *Decoder) handleBook(ctx context.Context, msg wsMessage) {
	// The shared connection keeps delivering frames for assets whose removal
	// already committed; a late snapshot must not resurrect the store entry.
	if !d.store.Tracked(msg.AssetID) {
		UntrackedFramesTotal.Inc()
		d.logger.Debug("snapshot-for-untracked-asset", zap.String("asset-id", msg.AssetID))
		return
	}

	book := NewBookFromSnapshot(msg.AssetID, msg.Bids, msg.Asks, msg.Hash, time.Now())
	d.store.setBook(msg.AssetID, book)
	SnapshotsAppliedTotal.Inc()

	d.bus.Publish(ctx, EventOrderbookUpdate, &BookUpdate{
		AssetID:    msg.AssetID,
		Book:       book,
		IsSnapshot: true,
	})
	d.bus.Publish(ctx, EventBidAskUpdated, &BidAskUpdate{
		AssetID: msg.AssetID,
		Book:    book,
	})

	if d.force != nil {
		d.force.ForcePublish(types.PlatformPolymarket, msg.AssetID)
	}

	d.logger.Debug("snapshot-applied",
		zap.String("asset-id", msg.AssetID),
		zap.Int("bid-levels", len(book.Bids)),
		zap.Int("ask-levels", len(book.Asks)))
}

func (d *Decoder) handlePriceChange(ctx context.Context, msg wsMessage) {
	prev, ok := d.store.Book(msg.AssetID)
	if !ok {
		PatchesWithoutBookTotal.Inc()
		d.logger.Debug("price-change-before-book", zap.String("asset-id", msg.AssetID))
		return
	}

	next := prev.ApplyChanges(msg.Changes, msg.Hash, time.Now())
	d.store.setBook(msg.AssetID, next)
	PatchesAppliedTotal.Inc()

	d.bus.Publish(ctx, EventOrderbookUpdate, &BookUpdate{
		AssetID: msg.AssetID,
		Book:    next,
	})

	if next.BestBid != prev.BestBid || next.BestAsk != prev.BestAsk {
		d.bus.Publish(ctx, EventBidAskUpdated, &BidAskUpdate{
			AssetID: msg.AssetID,
			Book:    next,
		})
	}
}

func (d *Decoder) handleTickSizeChange(ctx context.Context, msg wsMessage) {
	prev, ok := d.store.Book(msg.AssetID)
	if !ok {
		d.logger.Debug("tick-size-change-before-book", zap.String("asset-id", msg.AssetID))
		return
	}

	next := prev.ApplyTickSizeChange(msg.NewTickSize, time.Now())
	d.store.setBook(msg.AssetID, next)

	d.logger.Info("tick-size-changed",
		zap.String("asset-id", msg.AssetID),
		zap.String("old", msg.OldTickSize),
		zap.String("new", msg.NewTickSize))

	d.bus.Publish(ctx, EventOrderbookUpdate, &BookUpdate{
		AssetID: msg.AssetID,
		Book:    next,
	})

	if next.BestBid != prev.BestBid || next.BestAsk != prev.BestAsk {
		d.bus.Publish(ctx, EventBidAskUpdated, &BidAskUpdate{
			AssetID: msg.AssetID,
			Book:    next,
		})
	}
}

func (d *Decoder) handleLastTrade(ctx context.Context, msg wsMessage) {
	if !d.store.Tracked(msg.AssetID) {
		UntrackedFramesTotal.Inc()
		d.logger.Debug("trade-for-untracked-asset", zap.String("asset-id", msg.AssetID))
		return
	}

	size, _ := strconv.ParseFloat(msg.Size, 64)
	if size > 0 {
		d.store.addVolume(msg.AssetID, size)
	}

	if prev, ok := d.store.Book(msg.AssetID); ok {
		d.store.setBook(msg.AssetID, prev.ApplyLastTrade(msg.Price, time.Now()))
	}

	d.bus.Publish(ctx, EventLastTrade, &LastTrade{
		AssetID: msg.AssetID,
		Price:   msg.Price,
		Side:    msg.Side,
		Size:    size,
	})
}
