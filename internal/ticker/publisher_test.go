package ticker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/bus"
	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// fakeSource serves canned summaries.
type fakeSource struct {
	mu        sync.Mutex
	platform  types.Platform
	summaries map[string]*types.TickerSummary
}

func newFakeSource(platform types.Platform) *fakeSource {
	return &fakeSource{
		platform:  platform,
		summaries: make(map[string]*types.TickerSummary),
	}
}

func (s *fakeSource) set(key string, summary *types.TickerSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[key] = summary
}

func (s *fakeSource) Platform() types.Platform { return s.platform }

func (s *fakeSource) MarketKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.summaries))
	for k := range s.summaries {
		keys = append(keys, k)
	}
	return keys
}

func (s *fakeSource) Summary(key string) (*types.TickerSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary, ok := s.summaries[key]
	return summary, ok
}

func validSummary(bid, ask float64) *types.TickerSummary {
	return &types.TickerSummary{
		Yes: types.SideQuote{Bid: types.Float(bid), Ask: types.Float(ask), Volume: 100},
		No:  types.SideQuote{Bid: types.Float(1 - ask), Ask: types.Float(1 - bid), Volume: 100},
	}
}

func newTestPublisher(t *testing.T) (*Publisher, *fakeSource, *[]*types.TickerSnapshot, *bus.EventBus) {
	t.Helper()

	b := bus.New(zap.NewNop())
	source := newFakeSource(types.PlatformKalshi)
	p := New(Config{
		Source:   source,
		Bus:      b,
		Logger:   zap.NewNop(),
		Interval: time.Second,
	})

	var published []*types.TickerSnapshot
	b.Subscribe(EventSnapshot, func(ctx context.Context, event string, payload any) error {
		published = append(published, payload.(*types.TickerSnapshot))
		return nil
	})

	return p, source, &published, b
}

func TestPublishSuppressionIsIdempotent(t *testing.T) {
	p, source, published, _ := newTestPublisher(t)
	source.set("M", validSummary(0.40, 0.45))

	ctx := context.Background()
	p.publishMarket(ctx, "M", false)
	p.publishMarket(ctx, "M", false)

	// Identical summary publishes exactly once.
	require.Len(t, *published, 1)
	snap := (*published)[0]
	assert.Equal(t, "M", snap.MarketKey)
	assert.Equal(t, types.PlatformKalshi, snap.Platform)
	assert.InDelta(t, 0.40, *snap.Summary.Yes.Bid, 1e-9)

	// A changed summary publishes again.
	source.set("M", validSummary(0.41, 0.45))
	p.publishMarket(ctx, "M", false)
	assert.Len(t, *published, 2)
}

func TestForceBypassesSuppression(t *testing.T) {
	p, source, published, _ := newTestPublisher(t)
	source.set("M", validSummary(0.40, 0.45))

	ctx := context.Background()
	p.publishMarket(ctx, "M", false)
	p.publishMarket(ctx, "M", true)

	assert.Len(t, *published, 2)
}

func TestInvalidSummaryDropped(t *testing.T) {
	p, source, published, _ := newTestPublisher(t)

	// Crossed quote: bid above ask fails validation.
	source.set("M", &types.TickerSummary{
		Yes: types.SideQuote{Bid: types.Float(0.70), Ask: types.Float(0.40)},
	})

	p.publishMarket(context.Background(), "M", false)
	assert.Empty(t, *published)
}

func TestForcePublishIgnoresOtherPlatform(t *testing.T) {
	p, source, published, _ := newTestPublisher(t)
	source.set("M", validSummary(0.40, 0.45))

	p.ForcePublish(types.PlatformPolymarket, "M")

	select {
	case key := <-p.forceCh:
		t.Fatalf("unexpected forced key %q", key)
	default:
	}
	assert.Empty(t, *published)
}

func TestForgetResetsSuppression(t *testing.T) {
	p, source, published, _ := newTestPublisher(t)
	source.set("M", validSummary(0.40, 0.45))

	ctx := context.Background()
	p.publishMarket(ctx, "M", false)
	p.Forget("M")
	p.publishMarket(ctx, "M", false)

	assert.Len(t, *published, 2)
}

func TestPairRemovalResetsSuppression(t *testing.T) {
	p, source, published, b := newTestPublisher(t)
	source.set("M", validSummary(0.40, 0.45))

	polySource := newFakeSource(types.PlatformPolymarket)
	polySource.set("y", validSummary(0.55, 0.61))
	polyPub := New(Config{
		Source:   polySource,
		Bus:      b,
		Logger:   zap.NewNop(),
		Interval: time.Second,
	})

	ctx := context.Background()
	p.publishMarket(ctx, "M", false)
	polyPub.publishMarket(ctx, "y", false)
	require.Len(t, *published, 2)

	b.Publish(ctx, types.EventPairRemoved, &types.MarketPair{
		PairID:       "pair-1",
		KalshiTicker: "M",
		PolyYesAsset: "y",
		PolyNoAsset:  "n",
	})

	// Identical summaries republish: each venue dropped its suppression
	// state for the removed pair's markets.
	p.publishMarket(ctx, "M", false)
	polyPub.publishMarket(ctx, "y", false)
	assert.Len(t, *published, 4)
}

func TestPublisherLoop(t *testing.T) {
	b := bus.New(zap.NewNop())
	source := newFakeSource(types.PlatformKalshi)
	source.set("M", validSummary(0.40, 0.45))

	var mu sync.Mutex
	count := 0
	b.Subscribe(EventSnapshot, func(ctx context.Context, event string, payload any) error {
		mu.Lock()
		defer mu.Unlock()
		count++
		return nil
	})

	p := New(Config{
		Source:   source,
		Bus:      b,
		Logger:   zap.NewNop(),
		Interval: 10 * time.Millisecond,
	})

	p.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	p.ForcePublish(types.PlatformKalshi, "M")
	time.Sleep(50 * time.Millisecond)
	p.Close()

	mu.Lock()
	defer mu.Unlock()
	// One interval publication plus the forced one; suppression absorbs
	// the rest of the ticks.
	assert.Equal(t, 2, count)
}
