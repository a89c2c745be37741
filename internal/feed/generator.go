// Package feed generates the deterministic community aggregate feed.
//
// A feed is a pure function of its as-of date: sector weights are sampled per sector,
// the top sectors are renormalized, and runner rows are drawn from a pool biased by those
// weights. Nothing is cached or persisted here; callers regenerate on demand.
package feed

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/rewired-gh/sectorflow/internal/models"
	"github.com/rewired-gh/sectorflow/internal/seed"
	"github.com/rewired-gh/sectorflow/internal/synth"
)

// NoSector is the narrative placeholder when no sector weights exist.
const NoSector = "—"

// Sector weight range before renormalization.
const (
	minRawWeight   = 0.05
	rawWeightRange = 0.25
	// zeroWeightFallback replaces a missing weight when sizing the pool.
	zeroWeightFallback = 0.2
)

// Generator builds community feeds from an injected universe and parameters.
// A Generator holds no mutable state and is safe for concurrent use.
type Generator struct {
	universe Universe
	params   Params
}

// NewGenerator validates params against the universe and returns a Generator.
func NewGenerator(u Universe, p Params) (*Generator, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feed params: %w", err)
	}
	if len(u.sectors) < p.CandidateSectors {
		return nil, fmt.Errorf("universe has %d sectors, need %d candidates", len(u.sectors), p.CandidateSectors)
	}
	return &Generator{universe: u, params: p}, nil
}

// Universe returns the generator's sector catalogue.
func (g *Generator) Universe() Universe {
	return g.universe
}

// Generate builds the full feed for the calendar date of asOf.
func (g *Generator) Generate(asOf time.Time) (models.CommunityFeed, error) {
	day := models.FormatDate(asOf)
	top := g.TopSectors(day)

	narrative := NoSector
	if len(top) > 0 {
		narrative = top[0].Sector
	}

	f := models.CommunityFeed{
		AsOf:                   day,
		NarrativeHighestSector: narrative,
		TopSectors:             top,
		CommunityRunners:       g.Runners(day, top),
	}
	if err := f.Validate(); err != nil {
		return models.CommunityFeed{}, fmt.Errorf("generated feed for %s is inconsistent: %w", day, err)
	}
	return f, nil
}

// TopSectors samples a raw weight for each candidate sector, keeps the heaviest
// TopSectors and renormalizes them to sum to 1. Output is sorted by weight descending.
func (g *Generator) TopSectors(asOf string) []models.SectorWeight {
	candidates := g.universe.sectors[:g.params.CandidateSectors]

	raw := make([]models.SectorWeight, 0, len(candidates))
	for _, sector := range candidates {
		u := seed.Sample(seed.Key("sectorWeight", sector, asOf))
		raw = append(raw, models.SectorWeight{Sector: sector, Weight: minRawWeight + u*rawWeightRange})
	}

	sort.SliceStable(raw, func(i, j int) bool {
		return raw[i].Weight > raw[j].Weight
	})

	top := raw[:g.params.TopSectors]
	sum := 0.0
	for _, sw := range top {
		sum += sw.Weight
	}

	out := make([]models.SectorWeight, len(top))
	for i, sw := range top {
		out[i] = models.SectorWeight{Sector: sw.Sector, Weight: sw.Weight / sum}
	}
	return out
}

// pick is one (sector, ticker) entry of the sampling pool.
type pick struct {
	sector string
	ticker string
}

// runnerAccumulator carries the sampling loop state.
type runnerAccumulator struct {
	rows []models.RunnerRow
	seen map[string]bool
}

func (a *runnerAccumulator) accepts(key string, varietyThreshold int) bool {
	return !a.seen[key] || len(a.rows) >= varietyThreshold
}

// Runners draws up to RunnerCount rows from a pool weighted by top, attaches synthetic
// metrics and returns them sorted by return descending. Ties keep draw order.
// The result may be shorter than RunnerCount when the pool is degenerate, and with the
// default constants it is capped by the distinct pairs available before VarietyThreshold.
func (g *Generator) Runners(asOf string, top []models.SectorWeight) []models.RunnerRow {
	rows := g.draw(asOf, g.buildPool(top))

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Return30d > rows[j].Return30d
	})

	if len(rows) > g.params.RunnerCount {
		rows = rows[:g.params.RunnerCount]
	}
	return rows
}

// draw walks the pool with seeded picks and returns accepted rows in draw order.
func (g *Generator) draw(asOf string, pool []pick) []models.RunnerRow {
	acc := runnerAccumulator{
		rows: make([]models.RunnerRow, 0, g.params.RunnerCount),
		seen: make(map[string]bool),
	}
	if len(pool) == 0 {
		return acc.rows
	}

	maxDraws := len(pool) * g.params.IterationFactor
	for i := 0; len(acc.rows) < g.params.RunnerCount && i < maxDraws; i++ {
		idx := int(math.Floor(seed.Sample(seed.Key("pick", asOf, strconv.Itoa(i))) * float64(len(pool))))
		if idx >= len(pool) {
			idx = len(pool) - 1
		}
		p := pool[idx]
		key := p.sector + ":" + p.ticker

		if !acc.accepts(key, g.params.VarietyThreshold) {
			continue
		}

		acc.rows = append(acc.rows, models.RunnerRow{
			Sector:    p.sector,
			Ticker:    p.ticker,
			Return30d: synth.TrailingReturn(p.ticker, asOf),
			Signal:    synth.Signal(p.sector, p.ticker, asOf),
		})
		acc.seen[key] = true
	}
	return acc.rows
}

// buildPool repeats each top sector's tickers round(PoolCopies*weight) times.
// Pools smaller than MinPool are replaced by one copy of the whole universe.
func (g *Generator) buildPool(top []models.SectorWeight) []pick {
	var pool []pick
	for _, sw := range top {
		tickers := g.universe.tickers[sw.Sector]
		w := sw.Weight
		if w == 0 {
			w = zeroWeightFallback
		}
		copies := int(math.Round(float64(g.params.PoolCopies) * w))
		for c := 0; c < copies; c++ {
			for _, t := range tickers {
				pool = append(pool, pick{sector: sw.Sector, ticker: t})
			}
		}
	}

	if len(pool) < g.params.MinPool {
		pool = pool[:0]
		for _, sector := range g.universe.sectors {
			for _, t := range g.universe.tickers[sector] {
				pool = append(pool, pick{sector: sector, ticker: t})
			}
		}
	}
	return pool
}
