package arbitrage

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/bus"
	"github.com/RohitDayanand/polykalshi-client/internal/coordination"
	"github.com/RohitDayanand/polykalshi-client/pkg/cache"
	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// EventAlert carries deduplicated alerts ready for fan-out and storage.
const EventAlert = "arbitrage.alert"

const managerComponentID = "arbitrage-manager"

// dedupWindow is how long an alert's spread stays authoritative for
// suppression.
const dedupWindow = 30 * time.Second

// dedupRatio suppresses a new alert when its spread moved less than this
// fraction relative to the last emitted one.
const dedupRatio = 0.1

// SettingsPatch is a partial settings update; nil fields are left as-is.
type SettingsPatch struct {
	MinSpreadThreshold *float64 `json:"min_spread_threshold,omitempty"`
	MinTradeSize       *float64 `json:"min_trade_size,omitempty"`
}

// ManagerConfig holds manager dependencies.
type ManagerConfig struct {
	Bus         *bus.EventBus
	Coordinator *coordination.Coordinator
	Registry    *Registry
	Settings    *SettingsState
	Cache       cache.Cache
	Storage     Storage
	Logger      *zap.Logger

	// PairParticipants are the component ids that must ACK pair lifecycle
	// and market subscription operations.
	PairParticipants []string
	// SettingsParticipants must ACK settings changes.
	SettingsParticipants []string
}

// Manager owns alert deduplication, threshold settings, and the pair
// lifecycle. All stateful changes go through the coordinator so every
// affected component agrees before anything is externally observable.
type Manager struct {
	bus         *bus.EventBus
	coordinator *coordination.Coordinator
	registry    *Registry
	cache       cache.Cache
	storage     Storage
	logger      *zap.Logger

	pairParticipants     []string
	settingsParticipants []string

	settings *SettingsState

	mu     sync.Mutex
	staged map[string]Settings
}

// NewManager creates a manager and wires its opportunity subscription.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if err := cfg.Settings.Current().Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		bus:                  cfg.Bus,
		coordinator:          cfg.Coordinator,
		registry:             cfg.Registry,
		cache:                cfg.Cache,
		storage:              cfg.Storage,
		logger:               cfg.Logger,
		pairParticipants:     cfg.PairParticipants,
		settingsParticipants: cfg.SettingsParticipants,
		settings:             cfg.Settings,
		staged:               make(map[string]Settings),
	}

	if len(m.settingsParticipants) == 0 {
		m.settingsParticipants = []string{managerComponentID}
	}

	cfg.Bus.Subscribe(EventOpportunity, m.onOpportunity)

	return m, nil
}

// Current returns the active settings.
func (m *Manager) Current() Settings {
	return m.settings.Current()
}

// onOpportunity dedups raw opportunities into alerts. A pair's alert is
// suppressed while the spread stays within dedupRatio of the last emitted
// spread inside the window.
func (m *Manager) onOpportunity(ctx context.Context, event string, payload any) error {
	opp, ok := payload.(*Opportunity)
	if !ok {
		return fmt.Errorf("unexpected payload on %s: %T", event, payload)
	}

	key := "dedup:" + opp.PairID + ":" + string(opp.Direction) + ":" + string(opp.Side)

	if prev, found := m.cache.Get(key); found {
		if last, isFloat := prev.(float64); isFloat && last != 0 {
			if math.Abs(opp.Spread-last)/math.Abs(last) < dedupRatio {
				AlertsSuppressedTotal.Inc()
				m.logger.Debug("alert-suppressed",
					zap.String("pair-id", opp.PairID),
					zap.Float64("spread", opp.Spread),
					zap.Float64("last-spread", last))
				return nil
			}
		}
	}

	m.cache.Set(key, opp.Spread, dedupWindow)

	if m.storage != nil {
		if err := m.storage.StoreAlert(ctx, opp); err != nil {
			m.logger.Warn("alert-store-failed",
				zap.String("pair-id", opp.PairID),
				zap.Error(err))
		}
	}

	AlertsTotal.Inc()
	m.bus.Publish(ctx, EventAlert, opp)

	return nil
}

// AddPair registers a pair across all participants under two-phase commit.
func (m *Manager) AddPair(ctx context.Context, pair *types.MarketPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	return m.coordinator.Execute(ctx, "add_pair", pair, m.pairParticipants)
}

// RemovePair removes a pair by id across all participants.
func (m *Manager) RemovePair(ctx context.Context, pairID string) error {
	pair, ok := m.registry.Pair(pairID)
	if !ok {
		return &types.ValidationError{Field: "pair_id", Message: "unknown pair"}
	}
	return m.coordinator.Execute(ctx, "remove_pair", pair, m.pairParticipants)
}

// SubscribeMarket starts venue tracking for one market without pairing it.
func (m *Manager) SubscribeMarket(ctx context.Context, req *types.SubscribeMarketRequest) error {
	if req.MarketID == "" {
		return &types.ValidationError{Field: "market_identifier", Message: "must not be empty"}
	}
	if req.Platform != types.PlatformKalshi && req.Platform != types.PlatformPolymarket {
		return &types.ValidationError{Field: "platform", Message: "unknown platform"}
	}
	return m.coordinator.Execute(ctx, "subscribe_market", req, m.pairParticipants)
}

// ChangeSettings validates a patch, applies it under two-phase commit, and
// returns the applied settings with the list of changed fields. On any
// failure the current settings are untouched.
func (m *Manager) ChangeSettings(ctx context.Context, patch SettingsPatch) (Settings, []string, error) {
	next := m.Current()
	var changed []string

	if patch.MinSpreadThreshold != nil && *patch.MinSpreadThreshold != next.MinSpreadThreshold {
		next.MinSpreadThreshold = *patch.MinSpreadThreshold
		changed = append(changed, "min_spread_threshold")
	}
	if patch.MinTradeSize != nil && *patch.MinTradeSize != next.MinTradeSize {
		next.MinTradeSize = *patch.MinTradeSize
		changed = append(changed, "min_trade_size")
	}

	if err := next.Validate(); err != nil {
		SettingsChangesTotal.WithLabelValues("rejected").Inc()
		return m.Current(), nil, err
	}

	if len(changed) == 0 {
		return m.Current(), nil, nil
	}

	if err := m.coordinator.Execute(ctx, "settings_change", next, m.settingsParticipants); err != nil {
		SettingsChangesTotal.WithLabelValues("failed").Inc()
		return m.Current(), nil, err
	}

	SettingsChangesTotal.WithLabelValues("applied").Inc()

	m.logger.Info("settings-changed",
		zap.Strings("changed-fields", changed),
		zap.Float64("min-spread-threshold", next.MinSpreadThreshold),
		zap.Float64("min-trade-size", next.MinTradeSize))

	return next, changed, nil
}

// ComponentID implements coordination.Participant.
func (m *Manager) ComponentID() string { return managerComponentID }

// Prepare validates a settings change and stages it.
func (m *Manager) Prepare(ctx context.Context, op coordination.Operation) error {
	if op.Type != "settings_change" {
		return fmt.Errorf("unsupported operation type %q", op.Type)
	}

	next, ok := op.Payload.(Settings)
	if !ok {
		return fmt.Errorf("unexpected payload: %T", op.Payload)
	}

	if err := next.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.staged[op.ID] = next
	m.mu.Unlock()

	return nil
}

// Commit atomically swaps in the staged settings.
func (m *Manager) Commit(ctx context.Context, op coordination.Operation) error {
	m.mu.Lock()
	next, ok := m.staged[op.ID]
	delete(m.staged, op.ID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("commit for unknown operation %s", op.ID)
	}

	m.settings.set(next)

	return nil
}

// Rollback discards the staged settings.
func (m *Manager) Rollback(ctx context.Context, op coordination.Operation) {
	m.mu.Lock()
	delete(m.staged, op.ID)
	m.mu.Unlock()
}

// Close releases storage resources.
func (m *Manager) Close() error {
	if m.storage != nil {
		return m.storage.Close()
	}
	return nil
}
