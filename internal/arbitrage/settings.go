package arbitrage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/bus"
)

// Settings request/response events.
const (
	EventSettingsChangeRequested = "arbitrage.settings_change_requested"
	EventSettingsUpdated         = "arbitrage.settings_updated"
	EventSettingsError           = "arbitrage.settings_error"
)

// DefaultSettingsTimeout bounds a settings round trip, covering the inner
// two-phase commit.
const DefaultSettingsTimeout = 35 * time.Second

// SettingsChangeRequest asks for a settings change over the bus.
type SettingsChangeRequest struct {
	CorrelationID string        `json:"correlation_id"`
	Patch         SettingsPatch `json:"settings"`
}

// SettingsUpdated confirms an applied change.
type SettingsUpdated struct {
	CorrelationID string   `json:"correlation_id"`
	Settings      Settings `json:"settings"`
	ChangedFields []string `json:"changed_fields"`
}

// SettingsError reports a rejected or failed change.
type SettingsError struct {
	CorrelationID string `json:"correlation_id"`
	Error         string `json:"error"`
}

// settingsOutcome is delivered to the requester's one-shot channel.
type settingsOutcome struct {
	settings Settings
	changed  []string
	err      error
}

// SettingsCoordinator exposes settings tuning as request/response over the
// bus: requests carry a correlation id, and each requester awaits its reply
// on a per-id one-shot channel.
type SettingsCoordinator struct {
	bus     *bus.EventBus
	manager *Manager
	logger  *zap.Logger

	mu      sync.Mutex
	waiters map[string]chan settingsOutcome
}

// NewSettingsCoordinator wires the request and response subscriptions.
func NewSettingsCoordinator(b *bus.EventBus, manager *Manager, logger *zap.Logger) *SettingsCoordinator {
	sc := &SettingsCoordinator{
		bus:     b,
		manager: manager,
		logger:  logger,
		waiters: make(map[string]chan settingsOutcome),
	}

	b.Subscribe(EventSettingsChangeRequested, sc.onRequest)
	b.Subscribe(EventSettingsUpdated, sc.onUpdated)
	b.Subscribe(EventSettingsError, sc.onError)

	return sc
}

// onRequest validates and applies the change through the manager, then
// answers on the updated or error event with the same correlation id.
func (sc *SettingsCoordinator) onRequest(ctx context.Context, event string, payload any) error {
	req, ok := payload.(*SettingsChangeRequest)
	if !ok {
		return fmt.Errorf("unexpected payload on %s: %T", event, payload)
	}

	applied, changed, err := sc.manager.ChangeSettings(ctx, req.Patch)
	if err != nil {
		sc.bus.Publish(ctx, EventSettingsError, &SettingsError{
			CorrelationID: req.CorrelationID,
			Error:         err.Error(),
		})
		return nil
	}

	sc.bus.Publish(ctx, EventSettingsUpdated, &SettingsUpdated{
		CorrelationID: req.CorrelationID,
		Settings:      applied,
		ChangedFields: changed,
	})

	return nil
}

func (sc *SettingsCoordinator) onUpdated(ctx context.Context, event string, payload any) error {
	resp, ok := payload.(*SettingsUpdated)
	if !ok {
		return fmt.Errorf("unexpected payload on %s: %T", event, payload)
	}

	sc.deliver(resp.CorrelationID, settingsOutcome{
		settings: resp.Settings,
		changed:  resp.ChangedFields,
	})
	return nil
}

func (sc *SettingsCoordinator) onError(ctx context.Context, event string, payload any) error {
	resp, ok := payload.(*SettingsError)
	if !ok {
		return fmt.Errorf("unexpected payload on %s: %T", event, payload)
	}

	sc.deliver(resp.CorrelationID, settingsOutcome{
		err: fmt.Errorf("settings change rejected: %s", resp.Error),
	})
	return nil
}

func (sc *SettingsCoordinator) deliver(correlationID string, outcome settingsOutcome) {
	sc.mu.Lock()
	ch, ok := sc.waiters[correlationID]
	delete(sc.waiters, correlationID)
	sc.mu.Unlock()

	if !ok {
		return
	}

	select {
	case ch <- outcome:
	default:
	}
}

// Request publishes a settings change and awaits its correlated response.
func (sc *SettingsCoordinator) Request(ctx context.Context, patch SettingsPatch, timeout time.Duration) (Settings, []string, error) {
	if timeout <= 0 {
		timeout = DefaultSettingsTimeout
	}

	correlationID := uuid.New().String()
	ch := make(chan settingsOutcome, 1)

	sc.mu.Lock()
	sc.waiters[correlationID] = ch
	sc.mu.Unlock()

	defer func() {
		sc.mu.Lock()
		delete(sc.waiters, correlationID)
		sc.mu.Unlock()
	}()

	sc.bus.Publish(ctx, EventSettingsChangeRequested, &SettingsChangeRequest{
		CorrelationID: correlationID,
		Patch:         patch,
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case outcome := <-ch:
		return outcome.settings, outcome.changed, outcome.err
	case <-timer.C:
		return Settings{}, nil, fmt.Errorf("settings change timed out after %s", timeout)
	case <-ctx.Done():
		return Settings{}, nil, ctx.Err()
	}
}
