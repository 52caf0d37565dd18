package cmd

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/RohitDayanand/polykalshi-client/internal/app"
	"github.com/RohitDayanand/polykalshi-client/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the aggregation service",
	Long: `Starts the service, which will:
1. Connect to the Kalshi and Polymarket market-data websockets
2. Maintain per-market orderbooks from snapshots and deltas
3. Evaluate registered pairs for cross-venue arbitrage after fees
4. Publish ticker snapshots and alerts to subscribed websocket clients

Use --pairs to register market pairs from a JSON file at startup.`,
	RunE: runService,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("pairs", "p", "", "JSON file of market pairs to register at startup")
}

func runService(cmd *cobra.Command, args []string) error {
	// A missing .env is fine; the environment may be set directly.
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

	pairsFile, _ := cmd.Flags().GetString("pairs")
	seedPairs, err := loadSeedPairs(pairsFile)
	if err != nil {
		return fmt.Errorf("load pairs file: %w", err)
	}

	application, err := app.New(cfg, logger, &app.Options{SeedPairs: seedPairs})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}

func loadSeedPairs(path string) ([]app.SeedPair, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pairs []app.SeedPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return pairs, nil
}
