package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/arbitrage"
	"github.com/RohitDayanand/polykalshi-client/internal/broadcast"
	"github.com/RohitDayanand/polykalshi-client/internal/bus"
	"github.com/RohitDayanand/polykalshi-client/internal/coordination"
	"github.com/RohitDayanand/polykalshi-client/internal/ingest"
	"github.com/RohitDayanand/polykalshi-client/internal/kalshi"
	"github.com/RohitDayanand/polykalshi-client/internal/polymarket"
	"github.com/RohitDayanand/polykalshi-client/internal/storage"
	"github.com/RohitDayanand/polykalshi-client/internal/ticker"
	"github.com/RohitDayanand/polykalshi-client/pkg/cache"
	"github.com/RohitDayanand/polykalshi-client/pkg/config"
	"github.com/RohitDayanand/polykalshi-client/pkg/healthprobe"
	"github.com/RohitDayanand/polykalshi-client/pkg/httpserver"
	"github.com/RohitDayanand/polykalshi-client/pkg/types"
	pkgws "github.com/RohitDayanand/polykalshi-client/pkg/websocket"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	eventBus := bus.New(logger)

	coordinator := coordination.New(coordination.Config{
		Bus:            eventBus,
		PrepareTimeout: cfg.CoordPrepareTimeout,
		Logger:         logger,
	})

	kalshiStore := kalshi.NewStore()
	polyStore := polymarket.NewStore()

	kalshiPublisher := ticker.New(ticker.Config{
		Source:   kalshiStore,
		Bus:      eventBus,
		Logger:   logger,
		Interval: cfg.PublishInterval,
	})
	polyPublisher := ticker.New(ticker.Config{
		Source:   polyStore,
		Bus:      eventBus,
		Logger:   logger,
		Interval: cfg.PublishInterval,
	})

	kalshiQueue, kalshiClient, err := setupKalshi(cfg, logger, eventBus, kalshiStore, kalshiPublisher)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup kalshi: %w", err)
	}

	polyQueue, polyClient := setupPolymarket(cfg, logger, eventBus, polyStore, polyPublisher)

	settings := arbitrage.NewSettingsState(arbitrage.Settings{
		MinSpreadThreshold: cfg.MinSpreadThreshold,
		MinTradeSize:       cfg.MinTradeSize,
	})

	registry := arbitrage.NewRegistry(arbitrage.RegistryConfig{
		Bus:      eventBus,
		Kalshi:   kalshiStore,
		Poly:     polyStore,
		Settings: settings,
		Logger:   logger,
	})

	broadcaster := broadcast.New(broadcast.Config{
		Bus:         eventBus,
		Channels:    broadcast.NewChannelManager(),
		Logger:      logger,
		SendTimeout: cfg.ClientSendTimeout,
	})

	dedupCache, err := cache.NewRistretto()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	alertStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	pairParticipants := []string{
		kalshiClient.ComponentID(),
		polyClient.ComponentID(),
		registry.ComponentID(),
		broadcaster.ComponentID(),
	}

	manager, err := arbitrage.NewManager(arbitrage.ManagerConfig{
		Bus:              eventBus,
		Coordinator:      coordinator,
		Registry:         registry,
		Settings:         settings,
		Cache:            dedupCache,
		Storage:          alertStorage,
		Logger:           logger,
		PairParticipants: pairParticipants,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup manager: %w", err)
	}

	pairOps := []string{"add_pair", "remove_pair", "subscribe_market"}
	coordinator.Register(kalshiClient, pairOps...)
	coordinator.Register(polyClient, pairOps...)
	coordinator.Register(registry, pairOps...)
	coordinator.Register(broadcaster, pairOps...)
	coordinator.Register(manager, "settings_change")

	settingsCoordinator := arbitrage.NewSettingsCoordinator(eventBus, manager, logger)

	httpServer := httpserver.New(&httpserver.Config{
		Port:            cfg.HTTPPort,
		Logger:          logger,
		HealthChecker:   healthChecker,
		KalshiStore:     kalshiStore,
		PolymarketStore: polyStore,
		Manager:         manager,
		Registry:        registry,
		Settings:        settingsCoordinator,
		Broadcaster:     broadcaster,
	})

	// The readiness probe reflects venue connection state.
	eventBus.Subscribe(types.EventConnectionStatus, func(ctx context.Context, event string, payload any) error {
		status, ok := payload.(*types.ConnectionStatus)
		if !ok {
			return fmt.Errorf("unexpected payload on %s: %T", event, payload)
		}
		healthChecker.SetComponent(status.ClientID, status.Connected)
		return nil
	})

	return &App{
		cfg:                 cfg,
		logger:              logger,
		healthChecker:       healthChecker,
		httpServer:          httpServer,
		bus:                 eventBus,
		coordinator:         coordinator,
		kalshiStore:         kalshiStore,
		kalshiQueue:         kalshiQueue,
		kalshiClient:        kalshiClient,
		polyStore:           polyStore,
		polyQueue:           polyQueue,
		polyClient:          polyClient,
		kalshiPublisher:     kalshiPublisher,
		polyPublisher:       polyPublisher,
		registry:            registry,
		manager:             manager,
		settingsCoordinator: settingsCoordinator,
		broadcaster:         broadcaster,
		opts:                opts,
		ctx:                 ctx,
		cancel:              cancel,
	}, nil
}

func setupKalshi(
	cfg *config.Config,
	logger *zap.Logger,
	eventBus *bus.EventBus,
	store *kalshi.Store,
	publisher *ticker.Publisher,
) (*ingest.Queue, *kalshi.Client, error) {
	if cfg.KalshiAccessKeyID == "" || cfg.KalshiPrivateKeyPath == "" {
		return nil, nil, fmt.Errorf("KALSHI_ACCESS_KEY_ID and KALSHI_PRIVATE_KEY_PATH are required")
	}

	privateKey, err := kalshi.LoadPrivateKey(cfg.KalshiPrivateKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load private key: %w", err)
	}

	decoder := kalshi.NewDecoder(kalshi.DecoderConfig{
		Store:   store,
		Bus:     eventBus,
		Logger:  logger,
		RESTURL: cfg.KalshiRESTURL,
		Force:   publisher,
	})

	queue := ingest.New("kalshi", cfg.IngestQueueCapacity, decoder.Handle, logger)

	client := kalshi.NewClient(kalshi.ClientConfig{
		URL:          cfg.KalshiWSURL,
		AccessKeyID:  cfg.KalshiAccessKeyID,
		PrivateKey:   privateKey,
		Queue:        queue,
		Store:        store,
		Bus:          eventBus,
		Logger:       logger,
		PingInterval: cfg.WSPingInterval,
		Reconnect: pkgws.ReconnectConfig{
			Interval:   cfg.WSReconnectInterval,
			MaxRetries: cfg.WSMaxRetries,
		},
	})

	return queue, client, nil
}

func setupPolymarket(
	cfg *config.Config,
	logger *zap.Logger,
	eventBus *bus.EventBus,
	store *polymarket.Store,
	publisher *ticker.Publisher,
) (*ingest.Queue, *polymarket.Client) {
	decoder := polymarket.NewDecoder(polymarket.DecoderConfig{
		Store:  store,
		Bus:    eventBus,
		Logger: logger,
		Force:  publisher,
	})

	queue := ingest.New("polymarket", cfg.IngestQueueCapacity, decoder.Handle, logger)

	client := polymarket.NewClient(polymarket.ClientConfig{
		URL:          cfg.PolymarketWSURL,
		Queue:        queue,
		Store:        store,
		Bus:          eventBus,
		Logger:       logger,
		PingInterval: cfg.WSPingInterval,
		Reconnect: pkgws.ReconnectConfig{
			Interval:   cfg.WSReconnectInterval,
			MaxRetries: cfg.WSMaxRetries,
		},
	})

	return queue, client
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (arbitrage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pg, err := storage.NewPostgres(cfg.PostgresDSN(), logger)
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pg, nil
	}

	return storage.NewConsole(logger), nil
}
