package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application. Intake stops first so the
// queues drain before the downstream components go away.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Cancel context to signal all components
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop intake: venue sockets first, then drain the queues.
	a.kalshiClient.Close()
	a.polyClient.Close()
	a.kalshiQueue.Close()
	a.polyQueue.Close()

	a.kalshiPublisher.Close()
	a.polyPublisher.Close()

	a.broadcaster.Close()

	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	a.coordinator.Close()

	// Close storage
	err = a.manager.Close()
	if err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	// Wait for all goroutines
	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}
