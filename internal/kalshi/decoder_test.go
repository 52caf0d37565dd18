package kalshi

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/bus"
	"github.com/RohitDayanand/polykalshi-client/internal/ingest"
	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// forceRecorder captures forced publications requested by the decoder.
type forceRecorder struct {
	mu   sync.Mutex
	keys []string
}

func (f *forceRecorder) ForcePublish(platform types.Platform, marketKey string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, marketKey)
}

func (f *forceRecorder) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys)
}

func newTestDecoder(t *testing.T) (*Decoder, *Store, *bus.EventBus) {
	t.Helper()

	b := bus.New(zap.NewNop())
	store := NewStore()
	d := NewDecoder(DecoderConfig{
		Store:  store,
		Bus:    b,
		Logger: zap.NewNop(),
	})

	return d, store, b
}

func frame(data string) ingest.Frame {
	return ingest.Frame{Data: []byte(data), Received: time.Now()}
}

// collector records bus payloads for one event.
type collector struct {
	mu       sync.Mutex
	payloads []any
}

func collect(b *bus.EventBus, event string) *collector {
	c := &collector{}
	b.Subscribe(event, func(ctx context.Context, ev string, payload any) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.payloads = append(c.payloads, payload)
		return nil
	})
	return c
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func (c *collector) at(i int) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payloads[i]
}

func TestDecoderSnapshotPublishes(t *testing.T) {
	d, store, b := newTestDecoder(t)
	books := collect(b, EventOrderbookUpdate)
	bidAsk := collect(b, EventBidAskUpdated)

	d.Handle(frame(`{
		"type": "orderbook_snapshot",
		"sid": 1,
		"seq": 7,
		"msg": {
			"market_ticker": "KXUSD-TEST",
			"yes": [[40, 10], [38, 25]],
			"no": [[55, 20]]
		}
	}`))

	book, ok := store.Book("KXUSD-TEST")
	require.True(t, ok)
	assert.Equal(t, 40, book.BestYesBid)
	assert.Equal(t, 55, book.BestNoBid)
	assert.Equal(t, int64(7), book.LastSeq)

	require.Equal(t, 1, books.len())
	update := books.at(0).(*BookUpdate)
	assert.True(t, update.IsSnapshot)
	assert.Equal(t, 1, bidAsk.len())
}

func TestDecoderDeltaSequenceGapDropped(t *testing.T) {
	d, store, b := newTestDecoder(t)
	bidAsk := collect(b, EventBidAskUpdated)

	d.Handle(frame(`{"type":"orderbook_snapshot","seq":10,"msg":{"market_ticker":"KXUSD-TEST","yes":[[40,10]],"no":[]}}`))
	require.Equal(t, 1, bidAsk.len())

	// seq jumps 10 -> 12: the delta must be dropped without touching the book.
	d.Handle(frame(`{"type":"orderbook_delta","seq":12,"msg":{"market_ticker":"KXUSD-TEST","price":42,"delta":5,"side":"yes"}}`))

	book, ok := store.Book("KXUSD-TEST")
	require.True(t, ok)
	assert.Equal(t, int64(10), book.LastSeq)
	assert.Equal(t, 0, book.SizeAtYes(42))
	assert.Equal(t, 1, bidAsk.len())

	// The next in-sequence delta still applies.
	d.Handle(frame(`{"type":"orderbook_delta","seq":11,"msg":{"market_ticker":"KXUSD-TEST","price":42,"delta":5,"side":"yes"}}`))

	book, _ = store.Book("KXUSD-TEST")
	assert.Equal(t, int64(11), book.LastSeq)
	assert.Equal(t, 5, book.SizeAtYes(42))
	assert.Equal(t, 2, bidAsk.len(), "best yes bid moved 40 -> 42")
}

func TestDecoderDeltaBeforeSnapshotIgnored(t *testing.T) {
	d, store, _ := newTestDecoder(t)

	d.Handle(frame(`{"type":"orderbook_delta","seq":1,"msg":{"market_ticker":"KXUSD-TEST","price":42,"delta":5,"side":"yes"}}`))

	_, ok := store.Book("KXUSD-TEST")
	assert.False(t, ok)
}

func TestDecoderDeltaWithoutBestChangeSkipsBidAskEvent(t *testing.T) {
	d, _, b := newTestDecoder(t)
	bidAsk := collect(b, EventBidAskUpdated)
	books := collect(b, EventOrderbookUpdate)

	d.Handle(frame(`{"type":"orderbook_snapshot","seq":1,"msg":{"market_ticker":"KXUSD-TEST","yes":[[40,10]],"no":[[55,20]]}}`))

	// Deep level change: book event fires, bid/ask event does not.
	d.Handle(frame(`{"type":"orderbook_delta","seq":2,"msg":{"market_ticker":"KXUSD-TEST","price":30,"delta":7,"side":"yes"}}`))

	assert.Equal(t, 2, books.len())
	assert.Equal(t, 1, bidAsk.len())
}

func TestDecoderOKConfirmsSubscription(t *testing.T) {
	d, store, b := newTestDecoder(t)
	oks := collect(b, EventSubscriptionOK)

	d.Handle(frame(`{"id":3,"type":"ok","msg":{"channel":"orderbook_delta","sid":17,"market_tickers":["KXUSD-TEST"]}}`))

	require.Equal(t, 1, oks.len())
	ok := oks.at(0).(*SubscriptionOK)
	assert.Equal(t, int64(3), ok.CommandID)
	assert.Equal(t, 17, ok.SID)
	assert.ElementsMatch(t, []string{"KXUSD-TEST"}, ok.MarketTickers)

	// The ticker is tracked even before its first snapshot.
	assert.ElementsMatch(t, []string{"KXUSD-TEST"}, store.MarketKeys())
}

func TestDecoderErrorFrame(t *testing.T) {
	d, _, b := newTestDecoder(t)
	errs := collect(b, EventVenueError)

	d.Handle(frame(`{"id":4,"type":"error","msg":{"code":6,"msg":"Already subscribed"}}`))

	require.Equal(t, 1, errs.len())
	venueErr := errs.at(0).(*VenueError)
	assert.Equal(t, 6, venueErr.Code)
	assert.Equal(t, "Already subscribed", venueErr.Message)
}

func TestDecoderTickerV2Accumulates(t *testing.T) {
	d, store, b := newTestDecoder(t)
	tickers := collect(b, EventTickerUpdate)

	d.Handle(frame(`{"type":"ticker_v2","msg":{"market_ticker":"KXUSD-TEST","price":45,"yes_bid":44,"yes_ask":46,"volume_delta":100,"ts":1700000000}}`))
	d.Handle(frame(`{"type":"ticker_v2","msg":{"market_ticker":"KXUSD-TEST","volume_delta":50,"ts":1700000001}}`))

	require.Equal(t, 2, tickers.len())

	first := tickers.at(0).(*TickerUpdate)
	assert.True(t, first.BidAskChanged)
	assert.Equal(t, int64(100), first.State.Volume)

	second := tickers.at(1).(*TickerUpdate)
	assert.False(t, second.BidAskChanged, "no bid/ask fields in second frame")
	assert.Equal(t, int64(150), second.State.Volume)

	state, ok := store.tickerState("KXUSD-TEST")
	require.True(t, ok)
	assert.Equal(t, 44, state.YesBid)
	assert.Equal(t, 46, state.YesAsk)
	assert.Equal(t, int64(150), state.Volume)
}

func TestDecoderTickerV2ForcesPublishOnCandleBoundary(t *testing.T) {
	b := bus.New(zap.NewNop())
	force := &forceRecorder{}
	d := NewDecoder(DecoderConfig{
		Store:  NewStore(),
		Bus:    b,
		Logger: zap.NewNop(),
		Force:  force,
	})

	// 1700000000 and 1700000010 share a minute; 1700000070 starts the next.
	d.Handle(frame(`{"type":"ticker_v2","msg":{"market_ticker":"KXUSD-TEST","price":45,"ts":1700000000}}`))
	d.Handle(frame(`{"type":"ticker_v2","msg":{"market_ticker":"KXUSD-TEST","price":45,"ts":1700000010}}`))
	assert.Equal(t, 0, force.len(), "no boundary inside the candle")

	d.Handle(frame(`{"type":"ticker_v2","msg":{"market_ticker":"KXUSD-TEST","price":46,"ts":1700000070}}`))
	require.Equal(t, 1, force.len())
	assert.Equal(t, "KXUSD-TEST", force.keys[0])

	// Later frames in the same candle stay quiet.
	d.Handle(frame(`{"type":"ticker_v2","msg":{"market_ticker":"KXUSD-TEST","price":46,"ts":1700000071}}`))
	assert.Equal(t, 1, force.len())
}

func TestDecoderMalformedFrame(t *testing.T) {
	d, store, _ := newTestDecoder(t)

	d.Handle(frame(`{not json`))
	d.Handle(frame(`{"type":"orderbook_snapshot","seq":1,"msg":"not an object"}`))

	assert.Empty(t, store.MarketKeys())
}

func TestDecoderUnknownTypeIgnored(t *testing.T) {
	d, store, _ := newTestDecoder(t)

	d.Handle(frame(fmt.Sprintf(`{"type":%q,"msg":{}}`, "trade")))

	assert.Empty(t, store.MarketKeys())
}
