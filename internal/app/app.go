// Package app wires the venue clients, ingest queues, decoders, arbitrage
// pipeline, and outbound surfaces into one running service.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/arbitrage"
	"github.com/RohitDayanand/polykalshi-client/internal/broadcast"
	"github.com/RohitDayanand/polykalshi-client/internal/bus"
	"github.com/RohitDayanand/polykalshi-client/internal/coordination"
	"github.com/RohitDayanand/polykalshi-client/internal/ingest"
	"github.com/RohitDayanand/polykalshi-client/internal/kalshi"
	"github.com/RohitDayanand/polykalshi-client/internal/polymarket"
	"github.com/RohitDayanand/polykalshi-client/internal/ticker"
	"github.com/RohitDayanand/polykalshi-client/pkg/config"
	"github.com/RohitDayanand/polykalshi-client/pkg/healthprobe"
	"github.com/RohitDayanand/polykalshi-client/pkg/httpserver"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	bus         *bus.EventBus
	coordinator *coordination.Coordinator

	kalshiStore  *kalshi.Store
	kalshiQueue  *ingest.Queue
	kalshiClient *kalshi.Client

	polyStore  *polymarket.Store
	polyQueue  *ingest.Queue
	polyClient *polymarket.Client

	kalshiPublisher *ticker.Publisher
	polyPublisher   *ticker.Publisher

	registry            *arbitrage.Registry
	manager             *arbitrage.Manager
	settingsCoordinator *arbitrage.SettingsCoordinator
	broadcaster         *broadcast.Broadcaster

	opts *Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// Pairs to register once both venue clients are up, e.g. from a
	// seed file.
	SeedPairs []SeedPair
}

// SeedPair is a pair registered at startup.
type SeedPair struct {
	PairID       string `json:"pair_id"`
	KalshiTicker string `json:"kalshi_ticker"`
	PolyYesAsset string `json:"poly_yes_asset"`
	PolyNoAsset  string `json:"poly_no_asset"`
}
