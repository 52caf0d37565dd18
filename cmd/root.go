package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "polykalshi",
	Short: "Kalshi/Polymarket market-data aggregator and arbitrage detector",
	Long: `polykalshi maintains real-time orderbooks for paired Kalshi and
Polymarket prediction markets, detects cross-venue arbitrage after fees,
and serves ticker snapshots and alerts to websocket clients.

Market pairs couple one Kalshi market with the Polymarket YES and NO
assets answering the same question. Every best bid/ask move on either
venue re-evaluates the affected pairs.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
