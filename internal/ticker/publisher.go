// Package ticker publishes rate-limited per-market quote summaries.
package ticker

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/bus"
	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// EventSnapshot carries every published TickerSnapshot.
const EventSnapshot = "ticker.snapshot"

// DefaultInterval is the publication period when the config does not
// override it.
const DefaultInterval = time.Second

// Source is a venue book store viewed as a summary provider.
type Source interface {
	Platform() types.Platform
	MarketKeys() []string
	Summary(marketKey string) (*types.TickerSummary, bool)
}

// Config holds publisher configuration.
type Config struct {
	Source   Source
	Bus      *bus.EventBus
	Logger   *zap.Logger
	Interval time.Duration
}

// Publisher periodically builds a TickerSnapshot per active market and
// publishes it, suppressing republication while the summary is unchanged.
// ForcePublish bypasses both the interval and the suppression, used by the
// decoders after a full snapshot replaces a book.
type Publisher struct {
	source   Source
	bus      *bus.EventBus
	logger   *zap.Logger
	interval time.Duration

	forceCh chan string

	mu   sync.Mutex
	last map[string][]byte

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a publisher.
func New(cfg Config) *Publisher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	p := &Publisher{
		source:   cfg.Source,
		bus:      cfg.Bus,
		logger:   cfg.Logger.With(zap.String("platform", string(cfg.Source.Platform()))),
		interval: cfg.Interval,
		forceCh:  make(chan string, 64),
		last:     make(map[string][]byte),
	}

	cfg.Bus.Subscribe(types.EventPairRemoved, p.onPairRemoved)

	return p
}

// Start launches the publication loop.
func (p *Publisher) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.loop()
}

// Close stops the loop and waits for it to finish.
func (p *Publisher) Close() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("ticker-publisher-closed")
}

// ForcePublish requests an immediate publication for one market,
// bypassing suppression. Non-blocking; a full force queue falls back to
// the next interval tick.
func (p *Publisher) ForcePublish(platform types.Platform, marketKey string) {
	if platform != p.source.Platform() {
		return
	}

	select {
	case p.forceCh <- marketKey:
	default:
		ForceDropsTotal.WithLabelValues(string(platform)).Inc()
	}
}

func (p *Publisher) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case key := <-p.forceCh:
			p.publishMarket(p.ctx, key, true)
		case <-ticker.C:
			for _, key := range p.source.MarketKeys() {
				p.publishMarket(p.ctx, key, false)
			}
		}
	}
}

// publishMarket builds, validates, and publishes one market's snapshot.
// Invalid summaries are dropped with a warning; unchanged summaries are
// suppressed unless forced.
func (p *Publisher) publishMarket(ctx context.Context, marketKey string, force bool) {
	summary, ok := p.source.Summary(marketKey)
	if !ok {
		return
	}

	encoded, err := json.Marshal(summary)
	if err != nil {
		p.logger.Warn("summary-marshal-failed",
			zap.String("market-key", marketKey),
			zap.Error(err))
		return
	}

	platform := string(p.source.Platform())

	if !force {
		p.mu.Lock()
		prev, seen := p.last[marketKey]
		p.mu.Unlock()
		if seen && bytes.Equal(prev, encoded) {
			SuppressedTotal.WithLabelValues(platform).Inc()
			return
		}
	}

	snapshot := &types.TickerSnapshot{
		Type:      "ticker_snapshot",
		MarketKey: marketKey,
		Platform:  p.source.Platform(),
		Summary:   *summary,
		Timestamp: time.Now().UnixMilli(),
	}

	if err := snapshot.Validate(); err != nil {
		InvalidTotal.WithLabelValues(platform).Inc()
		p.logger.Warn("invalid-ticker-summary-dropped",
			zap.String("market-key", marketKey),
			zap.Error(err))
		return
	}

	p.mu.Lock()
	p.last[marketKey] = encoded
	p.mu.Unlock()

	PublishedTotal.WithLabelValues(platform).Inc()
	p.bus.Publish(ctx, EventSnapshot, snapshot)
}

// Forget drops the suppression state for a market after its pair is
// removed.
func (p *Publisher) Forget(marketKey string) {
	p.mu.Lock()
	delete(p.last, marketKey)
	p.mu.Unlock()
}

// onPairRemoved forgets the removed pair's markets on this publisher's
// venue, so a market re-added later publishes its first summary even when
// it matches the last one seen before removal.
func (p *Publisher) onPairRemoved(ctx context.Context, event string, payload any) error {
	pair, ok := payload.(*types.MarketPair)
	if !ok {
		return fmt.Errorf("unexpected payload on %s: %T", event, payload)
	}

	switch p.source.Platform() {
	case types.PlatformKalshi:
		p.Forget(pair.KalshiTicker)
	case types.PlatformPolymarket:
		p.Forget(pair.PolyYesAsset)
		p.Forget(pair.PolyNoAsset)
	}

	return nil
}
