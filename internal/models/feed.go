// Package models defines the core domain entities for sectorflow.
// These models represent community sector weights, runner rows, price observations,
// trailing returns and alignment results. Models carry built-in validation so that
// generated and parsed data can be checked at package boundaries.
//
// Terminology:
//   - As-of date: the calendar date a feed snapshot is generated for (YYYY-MM-DD).
//   - Runner: one (sector, ticker) row of the community feed with a synthetic return and signal.
//   - Signal: a three-facet label (concentration · breadth · stability).
package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DateLayout is the wire format of every calendar date in the API.
const DateLayout = "2006-01-02"

// FormatDate renders t as YYYY-MM-DD in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// SectorWeight is one entry of a community top-sector distribution.
type SectorWeight struct {
	Sector string  `json:"sector"`
	Weight float64 `json:"weight"`
}

// RunnerRow is a single (sector, ticker) entry of the community feed.
type RunnerRow struct {
	Sector    string  `json:"sector"`
	Ticker    string  `json:"ticker"`
	Return30d float64 `json:"return30d"`
	Signal    string  `json:"signal"`
}

// Key identifies the (sector, ticker) pair of a runner.
func (r RunnerRow) Key() string {
	return r.Sector + ":" + r.Ticker
}

// CommunityFeed is the full aggregate snapshot served for one as-of date.
// It is regenerated on every request and never mutated after construction.
type CommunityFeed struct {
	AsOf                   string         `json:"asOf"`
	NarrativeHighestSector string         `json:"narrativeHighestSector"`
	TopSectors             []SectorWeight `json:"topSectors"`
	CommunityRunners       []RunnerRow    `json:"communityRunners"`
}

// weightTolerance bounds floating point drift when checking normalization.
const weightTolerance = 1e-9

// Validate checks the structural invariants of a generated feed.
func (f *CommunityFeed) Validate() error {
	if _, err := ParseDate(f.AsOf); err != nil {
		return err
	}
	if len(f.TopSectors) > 0 {
		sum := 0.0
		for i, sw := range f.TopSectors {
			if sw.Sector == "" {
				return errors.New("sector name must not be empty")
			}
			if sw.Weight <= 0 || sw.Weight > 1 {
				return fmt.Errorf("sector %s weight %.6f must be in (0, 1]", sw.Sector, sw.Weight)
			}
			if i > 0 && sw.Weight > f.TopSectors[i-1].Weight {
				return errors.New("top sectors must be sorted by weight descending")
			}
			sum += sw.Weight
		}
		if math.Abs(sum-1.0) > weightTolerance {
			return fmt.Errorf("sector weights must sum to 1.0, got %.12f", sum)
		}
		if f.NarrativeHighestSector != f.TopSectors[0].Sector {
			return errors.New("narrative sector must be the highest weighted sector")
		}
	}
	for i, r := range f.CommunityRunners {
		if r.Ticker == "" || r.Sector == "" {
			return fmt.Errorf("runner %d must have sector and ticker", i)
		}
		if i > 0 && r.Return30d > f.CommunityRunners[i-1].Return30d {
			return errors.New("community runners must be sorted by return30d descending")
		}
	}
	return nil
}
