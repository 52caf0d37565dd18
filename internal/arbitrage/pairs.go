package arbitrage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/bus"
	"github.com/RohitDayanand/polykalshi-client/internal/coordination"
	"github.com/RohitDayanand/polykalshi-client/internal/kalshi"
	"github.com/RohitDayanand/polykalshi-client/internal/polymarket"
	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// EventOpportunity carries raw evaluator output, before deduplication.
const EventOpportunity = "arbitrage.opportunity"

const registryComponentID = "pair-registry"

// SettingsProvider exposes the current thresholds to the registry without
// coupling it to the manager.
type SettingsProvider interface {
	Current() Settings
}

// RegistryConfig holds registry dependencies.
type RegistryConfig struct {
	Bus      *bus.EventBus
	Kalshi   *kalshi.Store
	Poly     *polymarket.Store
	Settings SettingsProvider
	Logger   *zap.Logger
}

// Registry holds the active market pairs and drives evaluation: every best
// bid/ask move on either venue re-evaluates the pairs referencing that
// market against current atomic snapshots.
type Registry struct {
	bus      *bus.EventBus
	kalshi   *kalshi.Store
	poly     *polymarket.Store
	settings SettingsProvider
	logger   *zap.Logger

	mu       sync.RWMutex
	pairs    map[string]*types.MarketPair
	byTicker map[string]string
	byAsset  map[string]string
	staged   map[string]*types.MarketPair
}

// NewRegistry creates a registry and binds it to both venues' bid/ask
// events.
func NewRegistry(cfg RegistryConfig) *Registry {
	r := &Registry{
		bus:      cfg.Bus,
		kalshi:   cfg.Kalshi,
		poly:     cfg.Poly,
		settings: cfg.Settings,
		logger:   cfg.Logger,
		pairs:    make(map[string]*types.MarketPair),
		byTicker: make(map[string]string),
		byAsset:  make(map[string]string),
		staged:   make(map[string]*types.MarketPair),
	}

	cfg.Bus.Subscribe(kalshi.EventBidAskUpdated, r.onKalshiUpdate)
	cfg.Bus.Subscribe(polymarket.EventBidAskUpdated, r.onPolyUpdate)

	return r
}

// Pairs returns a copy of the active pairs.
func (r *Registry) Pairs() []*types.MarketPair {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.MarketPair, 0, len(r.pairs))
	for _, p := range r.pairs {
		out = append(out, p)
	}
	return out
}

// Pair returns a pair by id.
func (r *Registry) Pair(pairID string) (*types.MarketPair, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pairs[pairID]
	return p, ok
}

// PairByTicker returns the pair referencing a Kalshi ticker.
func (r *Registry) PairByTicker(ticker string) (*types.MarketPair, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byTicker[ticker]
	if !ok {
		return nil, false
	}
	return r.pairs[id], true
}

func (r *Registry) onKalshiUpdate(ctx context.Context, event string, payload any) error {
	update, ok := payload.(*kalshi.BidAskUpdate)
	if !ok {
		return fmt.Errorf("unexpected payload on %s: %T", event, payload)
	}

	r.mu.RLock()
	pairID, found := r.byTicker[update.Ticker]
	pair := r.pairs[pairID]
	r.mu.RUnlock()

	if !found {
		return nil
	}

	r.evaluate(ctx, pair)
	return nil
}

func (r *Registry) onPolyUpdate(ctx context.Context, event string, payload any) error {
	update, ok := payload.(*polymarket.BidAskUpdate)
	if !ok {
		return fmt.Errorf("unexpected payload on %s: %T", event, payload)
	}

	r.mu.RLock()
	pairID, found := r.byAsset[update.AssetID]
	pair := r.pairs[pairID]
	r.mu.RUnlock()

	if !found {
		return nil
	}

	r.evaluate(ctx, pair)
	return nil
}

// evaluate runs the pure evaluator over current snapshots and publishes
// each opportunity.
func (r *Registry) evaluate(ctx context.Context, pair *types.MarketPair) {
	kBook, _ := r.kalshi.Book(pair.KalshiTicker)
	pYes, _ := r.poly.Book(pair.PolyYesAsset)
	pNo, _ := r.poly.Book(pair.PolyNoAsset)

	start := time.Now()
	opps := Evaluate(pair, kBook, pYes, pNo, r.settings.Current(), time.Now())
	EvaluationDurationSeconds.Observe(time.Since(start).Seconds())
	EvaluationsTotal.Inc()

	for _, opp := range opps {
		OpportunitiesTotal.WithLabelValues(string(opp.Direction), string(opp.Side)).Inc()
		r.bus.Publish(ctx, EventOpportunity, opp)

		r.logger.Info("arbitrage-opportunity",
			zap.String("pair-id", opp.PairID),
			zap.Float64("spread", opp.Spread),
			zap.String("direction", string(opp.Direction)),
			zap.String("side", string(opp.Side)),
			zap.Float64("size", opp.ExecutionSize))
	}
}

// ComponentID implements coordination.Participant.
func (r *Registry) ComponentID() string { return registryComponentID }

// Prepare validates pair membership changes against the uniqueness
// invariant and stages them.
func (r *Registry) Prepare(ctx context.Context, op coordination.Operation) error {
	switch op.Type {
	case "add_pair":
		pair, err := pairPayload(op.Payload)
		if err != nil {
			return err
		}
		if err := pair.Validate(); err != nil {
			return err
		}

		r.mu.Lock()
		defer r.mu.Unlock()

		if _, exists := r.pairs[pair.PairID]; exists {
			return &types.ValidationError{Field: "pair_id", Message: "pair already registered"}
		}
		if _, taken := r.byTicker[pair.KalshiTicker]; taken {
			return &types.ValidationError{Field: "k_ticker", Message: "ticker already paired"}
		}
		if _, taken := r.byAsset[pair.PolyYesAsset]; taken {
			return &types.ValidationError{Field: "p_yes_id", Message: "asset already paired"}
		}
		if _, taken := r.byAsset[pair.PolyNoAsset]; taken {
			return &types.ValidationError{Field: "p_no_id", Message: "asset already paired"}
		}

		r.staged[op.ID] = pair
		return nil

	case "remove_pair":
		pair, err := pairPayload(op.Payload)
		if err != nil {
			return err
		}

		r.mu.Lock()
		defer r.mu.Unlock()

		if _, exists := r.pairs[pair.PairID]; !exists {
			return &types.ValidationError{Field: "pair_id", Message: "unknown pair"}
		}

		r.staged[op.ID] = pair
		return nil

	case "subscribe_market":
		// Membership is unchanged; venue clients do the work.
		return nil

	default:
		return fmt.Errorf("unsupported operation type %q", op.Type)
	}
}

// Commit applies the staged membership change.
func (r *Registry) Commit(ctx context.Context, op coordination.Operation) error {
	if op.Type == "subscribe_market" {
		return nil
	}

	r.mu.Lock()

	pair, ok := r.staged[op.ID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("commit for unknown operation %s", op.ID)
	}
	delete(r.staged, op.ID)

	var removed *types.MarketPair

	switch op.Type {
	case "add_pair":
		r.pairs[pair.PairID] = pair
		r.byTicker[pair.KalshiTicker] = pair.PairID
		r.byAsset[pair.PolyYesAsset] = pair.PairID
		r.byAsset[pair.PolyNoAsset] = pair.PairID

	case "remove_pair":
		removed = r.pairs[pair.PairID]
		delete(r.pairs, pair.PairID)
		delete(r.byTicker, removed.KalshiTicker)
		delete(r.byAsset, removed.PolyYesAsset)
		delete(r.byAsset, removed.PolyNoAsset)
	}

	active := len(r.pairs)
	r.mu.Unlock()

	PairsActive.Set(float64(active))

	// Published outside the lock: handlers may read the registry.
	if removed != nil {
		r.bus.Publish(ctx, types.EventPairRemoved, removed)
	}

	r.logger.Info("pair-membership-changed",
		zap.String("operation", op.Type),
		zap.String("pair-id", pair.PairID),
		zap.Int("active-pairs", active))

	return nil
}

// Rollback discards the staged change.
func (r *Registry) Rollback(ctx context.Context, op coordination.Operation) {
	r.mu.Lock()
	delete(r.staged, op.ID)
	r.mu.Unlock()
}

func pairPayload(payload any) (*types.MarketPair, error) {
	switch p := payload.(type) {
	case *types.MarketPair:
		return p, nil
	case types.MarketPair:
		return &p, nil
	default:
		return nil, fmt.Errorf("unexpected payload: %T", payload)
	}
}
