package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.Duration("publish-interval", a.cfg.PublishInterval),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		return err
	}

	if err := a.registerSeedPairs(a.opts.SeedPairs); err != nil {
		a.logger.Error("seed-pairs-failed", zap.Error(err))
	}

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("kalshi-ws-url", a.cfg.KalshiWSURL),
		zap.String("polymarket-ws-url", a.cfg.PolymarketWSURL))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	a.coordinator.Start()

	// Queues must consume before the venue clients connect so the first
	// snapshot frames are never dropped.
	a.kalshiQueue.Start()
	a.polyQueue.Start()

	a.kalshiPublisher.Start(a.ctx)
	a.polyPublisher.Start(a.ctx)

	err := a.kalshiClient.Start(a.ctx)
	if err != nil {
		return fmt.Errorf("start kalshi client: %w", err)
	}

	err = a.polyClient.Start(a.ctx)
	if err != nil {
		return fmt.Errorf("start polymarket client: %w", err)
	}

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

// registerSeedPairs adds startup pairs through the same coordinated path as
// runtime additions.
func (a *App) registerSeedPairs(pairs []SeedPair) error {
	for _, seed := range pairs {
		pair := &types.MarketPair{
			PairID:       seed.PairID,
			KalshiTicker: seed.KalshiTicker,
			PolyYesAsset: seed.PolyYesAsset,
			PolyNoAsset:  seed.PolyNoAsset,
		}

		if err := a.manager.AddPair(a.ctx, pair); err != nil {
			return fmt.Errorf("add pair %s: %w", pair.PairID, err)
		}

		a.logger.Info("seed-pair-registered",
			zap.String("pair-id", pair.PairID),
			zap.String("kalshi-ticker", pair.KalshiTicker))
	}

	return nil
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
