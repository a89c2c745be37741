package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/sectorflow/internal/feed"
	"github.com/rewired-gh/sectorflow/internal/models"
)

var (
	feedAsOf      string
	feedBreakdown bool
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print the community feed for a date as JSON",
	Example: `  sectorflow feed
  sectorflow feed --as-of 2025-03-14
  sectorflow feed --as-of 2025-03-14 --breakdown`,
	RunE: runFeed,
}

func init() {
	rootCmd.AddCommand(feedCmd)
	feedCmd.Flags().StringVar(&feedAsOf, "as-of", "", "As-of date (YYYY-MM-DD, default today)")
	feedCmd.Flags().BoolVar(&feedBreakdown, "breakdown", false, "Print the per-sector breakdown instead of the feed")
}

func runFeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	asOf := time.Now()
	if feedAsOf != "" {
		if asOf, err = models.ParseDate(feedAsOf); err != nil {
			return err
		}
	}

	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}
	f, err := gen.Generate(asOf)
	if err != nil {
		return fmt.Errorf("failed to generate feed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if feedBreakdown {
		return enc.Encode(feed.Breakdown(f))
	}
	return enc.Encode(f)
}
