package kalshi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/bus"
	"github.com/RohitDayanand/polykalshi-client/internal/ingest"
	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// restBootstrapTimeout bounds the one-shot REST fetch that seeds cumulative
// ticker state. The fetch is best effort; on failure state starts from zero
// and converges as deltas accumulate.
const restBootstrapTimeout = 2 * time.Second

// candlePeriodSeconds groups ticker_v2 frames into one-minute candles. The
// first frame of a new candle forces a ticker publish so the boundary value
// reaches subscribers even when the summary is otherwise unchanged.
const candlePeriodSeconds = 60

// ForcePublisher lets the decoder request an immediate ticker publish,
// bypassing the interval, after a full snapshot replaces a book.
type ForcePublisher interface {
	ForcePublish(platform types.Platform, marketKey string)
}

// DecoderConfig holds decoder dependencies.
type DecoderConfig struct {
	Store      *Store
	Bus        *bus.EventBus
	Logger     *zap.Logger
	RESTURL    string
	HTTPClient *http.Client
	Force      ForcePublisher
}

// Decoder consumes raw Kalshi frames off the ingest queue, maintains the
// book store, and publishes typed events. It is the single writer for the
// store: all mutation happens on the queue's consumer goroutine.
type Decoder struct {
	store  *Store
	bus    *bus.EventBus
	logger *zap.Logger

	restURL string
	http    *http.Client
	force   ForcePublisher

	bootstrapped map[string]bool
	candles      map[string]int64
}

// NewDecoder creates a decoder.
func NewDecoder(cfg DecoderConfig) *Decoder {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: restBootstrapTimeout}
	}

	return &Decoder{
		store:        cfg.Store,
		bus:          cfg.Bus,
		logger:       cfg.Logger,
		restURL:      cfg.RESTURL,
		http:         client,
		force:        cfg.Force,
		bootstrapped: make(map[string]bool),
		candles:      make(map[string]int64),
	}
}

// Handle is the ingest.FrameHandler for the Kalshi queue.
func (d *Decoder) Handle(frame ingest.Frame) {
	var env envelope
	if err := json.Unmarshal(frame.Data, &env); err != nil {
		DecodeErrorsTotal.Inc()
		d.logger.Warn("undecodable-frame", zap.Error(err))
		return
	}

	ctx := context.Background()

	switch env.Type {
	case msgTypeSnapshot:
		d.handleSnapshot(ctx, env)
	case msgTypeDelta:
		d.handleDelta(ctx, env)
	case msgTypeTickerV2:
		d.handleTickerV2(ctx, env)
	case msgTypeOK:
		d.handleOK(ctx, env)
	case msgTypeError:
		d.handleError(ctx, env)
	default:
		d.logger.Debug("unknown-message-type", zap.String("type", env.Type))
		return
	}

	MessagesDecodedTotal.WithLabelValues(env.Type).Inc()
}

func (d *Decoder) handleSnapshot(ctx context.Context, env envelope) {
	var p snapshotPayload
	if err := json.Unmarshal(env.Msg, &p); err != nil {
		DecodeErrorsTotal.Inc()
		d.logger.Warn("undecodable-snapshot", zap.Error(err))
		return
	}

	book := NewBookFromSnapshot(p.MarketTicker, p.Yes, p.No, env.Seq, time.Now())
	d.store.setBook(p.MarketTicker, book)
	SnapshotsAppliedTotal.Inc()

	d.checkEconomicSanity(book)

	d.bus.Publish(ctx, EventOrderbookUpdate, &BookUpdate{
		Ticker:     p.MarketTicker,
		Book:       book,
		IsSnapshot: true,
	})
	d.bus.Publish(ctx, EventBidAskUpdated, &BidAskUpdate{
		Ticker: p.MarketTicker,
		Book:   book,
	})

	if d.force != nil {
		d.force.ForcePublish(types.PlatformKalshi, p.MarketTicker)
	}

	d.logger.Debug("snapshot-applied",
		zap.String("ticker", p.MarketTicker),
		zap.Int64("seq", env.Seq),
		zap.Int("yes-levels", len(book.Yes)),
		zap.Int("no-levels", len(book.No)))
}

func (d *Decoder) handleDelta(ctx context.Context, env envelope) {
	var p deltaPayload
	if err := json.Unmarshal(env.Msg, &p); err != nil {
		DecodeErrorsTotal.Inc()
		d.logger.Warn("undecodable-delta", zap.Error(err))
		return
	}

	prev, ok := d.store.Book(p.MarketTicker)
	if !ok {
		d.logger.Debug("delta-before-snapshot", zap.String("ticker", p.MarketTicker))
		return
	}

	next, err := prev.ApplyDelta(p.Side, p.Price, p.Delta, env.Seq, time.Now())
	if err != nil {
		var gap *types.SequenceGapError
		if errors.As(err, &gap) {
			SequenceGapsTotal.Inc()
			d.logger.Warn("sequence-gap-dropping-delta",
				zap.String("ticker", gap.Ticker),
				zap.Int64("expected", gap.Expected),
				zap.Int64("got", gap.Got))
		} else {
			d.logger.Warn("delta-rejected",
				zap.String("ticker", p.MarketTicker),
				zap.Error(err))
		}
		return
	}

	d.store.setBook(p.MarketTicker, next)
	DeltasAppliedTotal.Inc()

	d.checkEconomicSanity(next)

	d.bus.Publish(ctx, EventOrderbookUpdate, &BookUpdate{
		Ticker: p.MarketTicker,
		Book:   next,
	})

	if next.BestYesBid != prev.BestYesBid || next.BestNoBid != prev.BestNoBid {
		d.bus.Publish(ctx, EventBidAskUpdated, &BidAskUpdate{
			Ticker: p.MarketTicker,
			Book:   next,
		})
	}
}

// checkEconomicSanity logs crossed books (YES bid + NO bid over a dollar).
// The venue's data is stored as received; the anomaly is only surfaced.
func (d *Decoder) checkEconomicSanity(book *Book) {
	if book.BestYesBid > 0 && book.BestNoBid > 0 && book.BestYesBid+book.BestNoBid > 100 {
		d.logger.Warn("crossed-book",
			zap.String("ticker", book.Ticker),
			zap.Int("yes-bid", book.BestYesBid),
			zap.Int("no-bid", book.BestNoBid))
	}
}

func (d *Decoder) handleTickerV2(ctx context.Context, env envelope) {
	var p tickerV2Payload
	if err := json.Unmarshal(env.Msg, &p); err != nil {
		DecodeErrorsTotal.Inc()
		d.logger.Warn("undecodable-ticker", zap.Error(err))
		return
	}

	state, known := d.store.tickerState(p.MarketTicker)
	if !known && !d.bootstrapped[p.MarketTicker] {
		d.bootstrapped[p.MarketTicker] = true
		state = d.bootstrapTickerState(p.MarketTicker)
	}

	bidAskChanged := false

	state.Ticker = p.MarketTicker
	if p.Price > 0 {
		state.Price = p.Price
	}
	if p.YesBid > 0 && p.YesBid != state.YesBid {
		state.YesBid = p.YesBid
		bidAskChanged = true
	}
	if p.YesAsk > 0 && p.YesAsk != state.YesAsk {
		state.YesAsk = p.YesAsk
		bidAskChanged = true
	}
	state.Volume += p.VolumeDelta
	state.UpdatedAt = time.Now()

	d.store.setTickerState(state)

	d.bus.Publish(ctx, EventTickerUpdate, &TickerUpdate{
		State:         state,
		BidAskChanged: bidAskChanged,
	})

	if p.Ts > 0 {
		bucket := p.Ts / candlePeriodSeconds
		prev, seen := d.candles[p.MarketTicker]
		d.candles[p.MarketTicker] = bucket
		if seen && bucket != prev {
			CandleBoundariesTotal.Inc()
			if d.force != nil {
				d.force.ForcePublish(types.PlatformKalshi, p.MarketTicker)
			}
		}
	}
}

// bootstrapTickerState fetches the current market totals over REST so the
// cumulative view does not start from zero mid-session.
func (d *Decoder) bootstrapTickerState(ticker string) TickerState {
	state := TickerState{Ticker: ticker}

	if d.restURL == "" {
		return state
	}

	ctx, cancel := context.WithTimeout(context.Background(), restBootstrapTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/markets/%s", d.restURL, ticker)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		TickerBootstrapsTotal.WithLabelValues("error").Inc()
		return state
	}

	resp, err := d.http.Do(req)
	if err != nil {
		TickerBootstrapsTotal.WithLabelValues("error").Inc()
		d.logger.Debug("ticker-bootstrap-failed",
			zap.String("ticker", ticker),
			zap.Error(err))
		return state
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		TickerBootstrapsTotal.WithLabelValues("error").Inc()
		d.logger.Debug("ticker-bootstrap-failed",
			zap.String("ticker", ticker),
			zap.Int("status", resp.StatusCode))
		return state
	}

	var market restMarketResponse
	if err := json.NewDecoder(resp.Body).Decode(&market); err != nil {
		TickerBootstrapsTotal.WithLabelValues("error").Inc()
		return state
	}

	state.Price = market.Market.LastPrice
	state.YesBid = market.Market.YesBid
	state.YesAsk = market.Market.YesAsk
	state.Volume = market.Market.Volume

	TickerBootstrapsTotal.WithLabelValues("ok").Inc()

	d.logger.Debug("ticker-bootstrapped",
		zap.String("ticker", ticker),
		zap.Int64("volume", state.Volume))

	return state
}

func (d *Decoder) handleOK(ctx context.Context, env envelope) {
	var p okPayload
	if err := json.Unmarshal(env.Msg, &p); err != nil {
		DecodeErrorsTotal.Inc()
		d.logger.Warn("undecodable-ok", zap.Error(err))
		return
	}

	for _, ticker := range p.MarketTickers {
		d.store.Ensure(ticker)
	}

	d.bus.Publish(ctx, EventSubscriptionOK, &SubscriptionOK{
		CommandID:     env.ID,
		Channel:       p.Channel,
		SID:           p.SID,
		MarketTickers: p.MarketTickers,
	})

	d.logger.Info("subscription-confirmed",
		zap.String("channel", p.Channel),
		zap.Int("sid", p.SID),
		zap.Strings("tickers", p.MarketTickers))
}

func (d *Decoder) handleError(ctx context.Context, env envelope) {
	var p errorPayload
	if err := json.Unmarshal(env.Msg, &p); err != nil {
		DecodeErrorsTotal.Inc()
		return
	}

	VenueErrorsTotal.Inc()

	d.bus.Publish(ctx, EventVenueError, &VenueError{
		CommandID: env.ID,
		Code:      p.Code,
		Message:   p.Msg,
	})

	d.logger.Warn("venue-error",
		zap.Int64("command-id", env.ID),
		zap.Int("code", p.Code),
		zap.String("message", p.Msg))
}
