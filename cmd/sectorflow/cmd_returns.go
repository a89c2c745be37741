package main

import (
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/sectorflow/internal/logger"
	"github.com/rewired-gh/sectorflow/internal/market"
	"github.com/rewired-gh/sectorflow/internal/metrics"
)

var returnsCmd = &cobra.Command{
	Use:     "returns TICKER...",
	Short:   "Fetch trailing returns for tickers",
	Example: "  sectorflow returns AAPL MSFT BRK.B",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runReturns,
}

func init() {
	rootCmd.AddCommand(returnsCmd)
}

func runReturns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, closeCache := newMarketService(cmd.Context(), cfg, metrics.NewRegistry())
	defer closeCache()

	tickers := market.ParseTickers(strings.Join(args, ","), svc.MaxTickers())
	if len(tickers) == 0 {
		return errors.New("no tickers provided")
	}

	records, failures, err := svc.Returns(cmd.Context(), tickers)
	if err != nil {
		return err
	}
	for _, f := range failures {
		logger.Warn("Skipped %s", f.Error())
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"items": records})
}
