// Package alignment compares a personal sector and ticker view with the community feed.
package alignment

import (
	"strings"

	"github.com/rewired-gh/sectorflow/internal/models"
)

// Overlap window sizes on the community side.
const (
	CommunitySectorWindow = 5
	CommunityRunnerWindow = 10
)

// Compute returns the sectors and runners shared between the personal view and feed.
// Sector overlap keeps personal order, ticker overlap keeps community ranking.
// Empty inputs produce empty, non-nil slices.
func Compute(sectors, tickers []string, feed models.CommunityFeed) models.AlignmentResult {
	result := models.AlignmentResult{
		AsOf:          feed.AsOf,
		SectorOverlap: []string{},
		TickerOverlap: []models.RunnerRow{},
	}

	community := make(map[string]bool, CommunitySectorWindow)
	for i, sw := range feed.TopSectors {
		if i >= CommunitySectorWindow {
			break
		}
		community[strings.ToLower(sw.Sector)] = true
	}
	for _, s := range NormalizeSectors(sectors) {
		if community[strings.ToLower(s)] {
			result.SectorOverlap = append(result.SectorOverlap, s)
		}
	}

	personal := make(map[string]bool, len(tickers))
	for _, t := range NormalizeTickers(tickers) {
		personal[t] = true
	}
	if len(personal) == 0 {
		return result
	}
	for i, r := range feed.CommunityRunners {
		if i >= CommunityRunnerWindow {
			break
		}
		if personal[strings.ToUpper(r.Ticker)] {
			result.TickerOverlap = append(result.TickerOverlap, r)
		}
	}
	return result
}

// NormalizeSectors trims sectors and drops case-insensitive repeats, keeping the
// first spelling and the original order.
func NormalizeSectors(sectors []string) []string {
	out := make([]string, 0, len(sectors))
	seen := make(map[string]bool, len(sectors))
	for _, s := range sectors {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// NormalizeTickers trims, uppercases and de-duplicates tickers, keeping order.
func NormalizeTickers(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	seen := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
