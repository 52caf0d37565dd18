package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/RohitDayanand/polykalshi-client/internal/bus"
	"github.com/RohitDayanand/polykalshi-client/internal/ingest"
	"github.com/RohitDayanand/polykalshi-client/internal/polymarket"
	"github.com/RohitDayanand/polykalshi-client/pkg/config"
	pkgws "github.com/RohitDayanand/polykalshi-client/pkg/websocket"
)

//nolint:gochecknoglobals // Cobra boilerplate
var watchTickersCmd = &cobra.Command{
	Use:   "watch-tickers <asset-id> [asset-id...]",
	Short: "Stream live Polymarket best bid/ask for the given assets",
	Long: `Connects to the Polymarket market websocket and prints best bid/ask
changes for the given asset ids. Useful for debugging book maintenance
without running the full service.

Example:
  polykalshi watch-tickers 215528173...`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatchTickers,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(watchTickersCmd)
}

func runWatchTickers(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventBus := bus.New(logger)
	store := polymarket.NewStore()

	decoder := polymarket.NewDecoder(polymarket.DecoderConfig{
		Store:  store,
		Bus:    eventBus,
		Logger: logger,
	})

	queue := ingest.New("polymarket", cfg.IngestQueueCapacity, decoder.Handle, logger)
	queue.Start()
	defer queue.Close()

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

	eventBus.Subscribe(polymarket.EventBidAskUpdated, func(ctx context.Context, event string, payload any) error {
		update, ok := payload.(*polymarket.BidAskUpdate)
		if !ok {
			return fmt.Errorf("unexpected payload on %s: %T", event, payload)
		}

		bid := update.Book.BestBid
		ask := update.Book.BestAsk
		if bid == "" {
			bid = "-"
		}
		if ask == "" {
			ask = "-"
		}

		fmt.Printf("%s  %s  bid=%s ask=%s\n",
			time.Now().Format("15:04:05.000"), update.AssetID, bid, ask)
		return nil
	})

	if err := client.AddAssets(args...); err != nil {
		return fmt.Errorf("track assets: %w", err)
	}

	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("start client: %w", err)
	}
	defer client.Close()

	fmt.Printf("Watching %d asset(s). Ctrl-C to exit.\n\n", len(args))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	return nil
}
