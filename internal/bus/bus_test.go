package bus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	b := New(zap.NewNop())

	var mu sync.Mutex
	var got []any

	b.Subscribe("kalshi.orderbook_update", func(ctx context.Context, event string, payload any) error {
		mu.Lock()
		got = append(got, payload)
		mu.Unlock()
		return nil
	})

	errs := b.Publish(context.Background(), "kalshi.orderbook_update", "payload-1")
	require.Empty(t, errs)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "payload-1", got[0])
}

func TestWildcardReceivesEveryEvent(t *testing.T) {
	b := New(zap.NewNop())

	var mu sync.Mutex
	events := make(map[string]int)

	b.Subscribe(Wildcard, func(ctx context.Context, event string, payload any) error {
		mu.Lock()
		events[event]++
		mu.Unlock()
		return nil
	})

	b.Publish(context.Background(), "kalshi.bid_ask_updated", nil)
	b.Publish(context.Background(), "polymarket.bid_ask_updated", nil)
	b.Publish(context.Background(), "arbitrage.alert", nil)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, events["kalshi.bid_ask_updated"])
	assert.Equal(t, 1, events["polymarket.bid_ask_updated"])
	assert.Equal(t, 1, events["arbitrage.alert"])
}

func TestHandlerFailureIsIsolated(t *testing.T) {
	b := New(zap.NewNop())

	var mu sync.Mutex
	var delivered int

	b.Subscribe("ticker.snapshot", func(ctx context.Context, event string, payload any) error {
		return errors.New("handler boom")
	})
	b.Subscribe("ticker.snapshot", func(ctx context.Context, event string, payload any) error {
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	})

	errs := b.Publish(context.Background(), "ticker.snapshot", nil)

	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "handler boom")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, delivered, "healthy handler must still run")
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	b := New(zap.NewNop())

	b.Subscribe("ticker.snapshot", func(ctx context.Context, event string, payload any) error {
		panic("handler exploded")
	})

	errs := b.Publish(context.Background(), "ticker.snapshot", nil)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "handler exploded")
}

func TestPerSubscriberOrderMatchesPublishOrder(t *testing.T) {
	b := New(zap.NewNop())

	var mu sync.Mutex
	var seen []int

	b.Subscribe("kalshi.ticker_update", func(ctx context.Context, event string, payload any) error {
		mu.Lock()
		seen = append(seen, payload.(int))
		mu.Unlock()
		return nil
	})

	for i := 0; i < 50; i++ {
		b.Publish(context.Background(), "kalshi.ticker_update", i)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 50)
	for i, v := range seen {
		assert.Equal(t, i, v)
	}
}

func TestStats(t *testing.T) {
	b := New(zap.NewNop())

	b.Subscribe("arbitrage.alert", func(ctx context.Context, event string, payload any) error {
		return errors.New("sink unavailable")
	})

	b.Publish(context.Background(), "arbitrage.alert", nil)
	b.Publish(context.Background(), "arbitrage.alert", nil)
	b.Publish(context.Background(), "coordination.response", nil)

	stats := b.Stats()
	assert.Equal(t, uint64(2), stats["arbitrage.alert"].Published)
	assert.Equal(t, uint64(2), stats["arbitrage.alert"].Errors)
	assert.Equal(t, uint64(1), stats["coordination.response"].Published)
	assert.Equal(t, uint64(0), stats["coordination.response"].Errors)
}
