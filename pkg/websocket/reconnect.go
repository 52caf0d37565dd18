// Package websocket holds connection-management helpers shared by the venue
// clients.
package websocket

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxRetries is the reconnection budget per disconnect.
const DefaultMaxRetries = 3

// ReconnectConfig holds reconnection parameters. The venues expect a fixed
// wait between attempts and a bounded retry budget; exhausting the budget
// surfaces the last error to the caller.
type ReconnectConfig struct {
	Interval   time.Duration
	MaxRetries int
}

// ReconnectManager retries a connect function with a fixed interval.
type ReconnectManager struct {
	config ReconnectConfig
	logger *zap.Logger
}

// NewReconnectManager creates a reconnection manager.
func NewReconnectManager(cfg ReconnectConfig, logger *zap.Logger) *ReconnectManager {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	return &ReconnectManager{
		config: cfg,
		logger: logger,
	}
}

// Reconnect attempts connectFunc up to MaxRetries times, waiting Interval
// before each attempt. Returns nil on the first success, ctx.Err() on
// cancellation, or the last connection error once the budget is exhausted.
func (rm *ReconnectManager) Reconnect(ctx context.Context, connectFunc func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= rm.config.MaxRetries; attempt++ {
		select {
		case <-time.After(rm.config.Interval):
		case <-ctx.Done():
			return ctx.Err()
		}

		rm.logger.Info("attempting-reconnection",
			zap.Int("attempt", attempt),
			zap.Int("max-retries", rm.config.MaxRetries))

		ReconnectAttemptsTotal.Inc()

		lastErr = connectFunc(ctx)
		if lastErr == nil {
			rm.logger.Info("reconnection-successful", zap.Int("attempt", attempt))
			return nil
		}

		rm.logger.Warn("reconnection-failed",
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
		ReconnectFailuresTotal.Inc()
	}

	return fmt.Errorf("reconnect budget exhausted after %d attempts: %w", rm.config.MaxRetries, lastErr)
}
