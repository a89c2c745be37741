package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/sectorflow/internal/logger"
	"github.com/rewired-gh/sectorflow/internal/metrics"
	"github.com/rewired-gh/sectorflow/internal/scheduler"
	"github.com/rewired-gh/sectorflow/internal/storage"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Archive today's feed and send the digest once",
	RunE:  runDigest,
}

func init() {
	rootCmd.AddCommand(digestCmd)
}

func runDigest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DBPath, cfg.Storage.MaxSnapshots)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	job, err := newDigestJob(cfg, gen, store, metrics.NewRegistry())
	if err != nil {
		return err
	}
	return scheduler.New(logger.Get()).RunNow(cmd.Context(), job)
}
