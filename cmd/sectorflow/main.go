package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/sectorflow/internal/config"
	"github.com/rewired-gh/sectorflow/internal/logger"
)

var configPath string

// rootCmd is the base command for the sectorflow CLI
var rootCmd = &cobra.Command{
	Use:   "sectorflow",
	Short: "Community sector feed and market return service",
	Long: `sectorflow serves a deterministic community sector feed, trailing market
returns from daily price tables and the alignment between personal spend and
the community view.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (defaults and SECTORFLOW_* environment when empty)")
}

// loadConfig loads and validates configuration, then initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if configPath != "" {
		logger.Info("Configuration loaded from %s", configPath)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
