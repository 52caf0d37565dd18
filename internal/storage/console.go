// Package storage provides arbitrage alert sinks: console logging by
// default, Postgres when configured.
package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/arbitrage"
)

// Console logs each alert through the structured logger. The default sink.
type Console struct {
	logger *zap.Logger
}

// NewConsole creates a console sink.
func NewConsole(logger *zap.Logger) *Console {
	return &Console{logger: logger}
}

// StoreAlert implements arbitrage.Storage.
func (c *Console) StoreAlert(ctx context.Context, opp *arbitrage.Opportunity) error {
	c.logger.Info("arbitrage-alert",
		zap.String("alert-id", opp.ID),
		zap.String("pair-id", opp.PairID),
		zap.Float64("spread", opp.Spread),
		zap.String("direction", string(opp.Direction)),
		zap.String("side", string(opp.Side)),
		zap.Float64("k-price", opp.KalshiPrice),
		zap.Float64("p-price", opp.PolyPrice),
		zap.Float64("execution-size", opp.ExecutionSize),
		zap.String("limiting-venue", opp.Execution.LimitingVenue))

	AlertsStoredTotal.WithLabelValues("console").Inc()
	return nil
}

// Close implements arbitrage.Storage.
func (c *Console) Close() error { return nil }
