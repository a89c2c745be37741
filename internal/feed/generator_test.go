package feed

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/sectorflow/internal/models"
	"github.com/rewired-gh/sectorflow/internal/seed"
	"github.com/rewired-gh/sectorflow/internal/synth"
)

func newDefaultGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := NewGenerator(DefaultUniverse(), DefaultParams())
	require.NoError(t, err)
	return g
}

// wideUniverse has enough distinct pairs for the sampler to reach its full runner count.
func wideUniverse(t *testing.T, sectors, tickersPerSector int) Universe {
	t.Helper()
	names := make([]string, sectors)
	tickers := make(map[string][]string, sectors)
	for s := 0; s < sectors; s++ {
		names[s] = fmt.Sprintf("Sector %d", s)
		for i := 0; i < tickersPerSector; i++ {
			tickers[names[s]] = append(tickers[names[s]], fmt.Sprintf("S%dT%d", s, i))
		}
	}
	u, err := NewUniverse(names, tickers)
	require.NoError(t, err)
	return u
}

func TestGenerate_Deterministic(t *testing.T) {
	g := newDefaultGenerator(t)
	asOf := time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)

	a, err := g.Generate(asOf)
	require.NoError(t, err)
	b, err := newDefaultGenerator(t).Generate(asOf)
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
	assert.Equal(t, "2025-03-14", a.AsOf)
}

func TestGenerate_DifferentDatesDiffer(t *testing.T) {
	g := newDefaultGenerator(t)
	a, err := g.Generate(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	b, err := g.Generate(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.NotEqual(t, a.TopSectors, b.TopSectors)
}

func TestTopSectors_Normalized(t *testing.T) {
	g := newDefaultGenerator(t)
	candidates := map[string]bool{}
	for _, s := range DefaultUniverse().Sectors()[:8] {
		candidates[s] = true
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for d := 0; d < 120; d++ {
		asOf := models.FormatDate(start.AddDate(0, 0, d))
		top := g.TopSectors(asOf)
		require.Len(t, top, 5)

		sum := 0.0
		for i, sw := range top {
			assert.True(t, candidates[sw.Sector], "sector %s outside candidates", sw.Sector)
			assert.Greater(t, sw.Weight, 0.0)
			assert.LessOrEqual(t, sw.Weight, 1.0)
			if i > 0 {
				assert.GreaterOrEqual(t, top[i-1].Weight, sw.Weight)
			}
			sum += sw.Weight
		}
		assert.InDelta(t, 1.0, sum, 1e-9, asOf)
	}
}

func TestTopSectors_MatchesRawWeights(t *testing.T) {
	g := newDefaultGenerator(t)
	asOf := "2025-03-14"
	top := g.TopSectors(asOf)

	raw := func(sector string) float64 {
		return 0.05 + seed.Sample("sectorWeight:"+sector+":"+asOf)*0.25
	}
	sum := 0.0
	for _, sw := range top {
		sum += raw(sw.Sector)
	}
	for _, sw := range top {
		assert.InDelta(t, raw(sw.Sector)/sum, sw.Weight, 1e-15)
	}
}

func TestRunners_DefaultUniverseProperties(t *testing.T) {
	g := newDefaultGenerator(t)
	asOf := "2025-03-14"
	top := g.TopSectors(asOf)
	rows := g.Runners(asOf, top)

	require.NotEmpty(t, rows)
	assert.LessOrEqual(t, len(rows), 200)

	topNames := map[string]bool{}
	distinct := 0
	for _, sw := range top {
		topNames[sw.Sector] = true
		distinct += len(DefaultUniverse().Tickers(sw.Sector))
	}

	seen := map[string]bool{}
	for i, r := range rows {
		assert.True(t, topNames[r.Sector], "runner sector %s not in top sectors", r.Sector)
		assert.GreaterOrEqual(t, r.Return30d, synth.MinReturn)
		assert.LessOrEqual(t, r.Return30d, synth.MaxReturn)
		assert.Equal(t, synth.TrailingReturn(r.Ticker, asOf), r.Return30d)
		assert.Equal(t, synth.Signal(r.Sector, r.Ticker, asOf), r.Signal)
		if i > 0 {
			assert.GreaterOrEqual(t, rows[i-1].Return30d, r.Return30d)
		}
		// The top sectors hold fewer distinct pairs than the variety threshold,
		// so every accepted row is unique.
		assert.False(t, seen[r.Key()], "duplicate %s", r.Key())
		seen[r.Key()] = true
	}
	assert.LessOrEqual(t, len(rows), distinct)
}

func TestRunners_ReachesFullCountWithWideUniverse(t *testing.T) {
	g, err := NewGenerator(wideUniverse(t, 10, 40), DefaultParams())
	require.NoError(t, err)

	asOf := "2025-03-14"
	top := g.TopSectors(asOf)
	pool := g.buildPool(top)
	drawn := g.draw(asOf, pool)
	require.Len(t, drawn, 200)

	// No repeats before the variety threshold.
	seen := map[string]bool{}
	for _, r := range drawn[:120] {
		assert.False(t, seen[r.Key()], "repeat %s before threshold", r.Key())
		seen[r.Key()] = true
	}

	rows := g.Runners(asOf, top)
	require.Len(t, rows, 200)
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1].Return30d, rows[i].Return30d)
	}
}

func TestBuildPool_WeightedCopies(t *testing.T) {
	g := newDefaultGenerator(t)
	top := []models.SectorWeight{
		{Sector: "Energy", Weight: 0.5},
		{Sector: "Utilities", Weight: 0.5},
	}
	pool := g.buildPool(top)

	// round(40*0.5) = 20 copies of 9 and 5 tickers.
	assert.Len(t, pool, 20*9+20*5)
	assert.Equal(t, pick{sector: "Energy", ticker: "XOM"}, pool[0])
}

func TestBuildPool_ZeroWeightUsesFallback(t *testing.T) {
	g := newDefaultGenerator(t)
	pool := g.buildPool([]models.SectorWeight{{Sector: "Technology", Weight: 0}})
	// round(40*0.2) = 8 copies of 15 tickers.
	assert.Len(t, pool, 8*15)
}

func TestBuildPool_SmallPoolFallsBackToUniverse(t *testing.T) {
	g := newDefaultGenerator(t)

	total := 0
	for _, s := range DefaultUniverse().Sectors() {
		total += len(DefaultUniverse().Tickers(s))
	}

	pool := g.buildPool(nil)
	assert.Len(t, pool, total)

	// An unknown sector contributes nothing, so the pool also falls back.
	pool = g.buildPool([]models.SectorWeight{{Sector: "Crypto", Weight: 1}})
	assert.Len(t, pool, total)
}

func TestRunners_DegeneratePoolIsShort(t *testing.T) {
	u := wideUniverse(t, 8, 1)
	g, err := NewGenerator(u, DefaultParams())
	require.NoError(t, err)

	// The weighted pool is too small, so the whole universe is drawn once per pair.
	rows := g.Runners("2025-03-14", g.TopSectors("2025-03-14"))
	require.NotEmpty(t, rows)
	assert.LessOrEqual(t, len(rows), 8)

	seen := map[string]bool{}
	for _, r := range rows {
		assert.False(t, seen[r.Key()])
		seen[r.Key()] = true
	}
}

func TestRunners_EmptyPoolWithoutFallback(t *testing.T) {
	p := DefaultParams()
	p.MinPool = 0
	g, err := NewGenerator(DefaultUniverse(), p)
	require.NoError(t, err)

	rows := g.Runners("2025-03-14", nil)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestNewGenerator_Validation(t *testing.T) {
	p := DefaultParams()
	p.VarietyThreshold = 300
	_, err := NewGenerator(DefaultUniverse(), p)
	assert.Error(t, err)

	p = DefaultParams()
	p.CandidateSectors = 20
	_, err = NewGenerator(DefaultUniverse(), p)
	assert.Error(t, err)
}

func TestUniverse_Accessors(t *testing.T) {
	u := DefaultUniverse()
	require.Len(t, u.Sectors(), 12)

	tickers := u.Tickers("Energy")
	tickers[0] = "MUTATED"
	assert.Equal(t, "XOM", u.Tickers("Energy")[0])
	assert.Nil(t, u.Tickers("Crypto"))

	sector, ok := u.SectorOf("mcd")
	assert.True(t, ok)
	assert.Equal(t, "Consumer & Retail", sector)

	canonical, ok := u.Lookup("  real estate ")
	assert.True(t, ok)
	assert.Equal(t, "Real Estate", canonical)
}

func TestNewUniverse_Errors(t *testing.T) {
	_, err := NewUniverse(nil, nil)
	assert.Error(t, err)

	_, err = NewUniverse([]string{"A", "A"}, map[string][]string{"A": {"X"}})
	assert.Error(t, err)

	_, err = NewUniverse([]string{"A"}, map[string][]string{})
	assert.Error(t, err)
}

func TestBreakdown(t *testing.T) {
	f := models.CommunityFeed{
		AsOf:                   "2025-03-14",
		NarrativeHighestSector: "Energy",
		TopSectors:             []models.SectorWeight{{Sector: "Energy", Weight: 0.7}, {Sector: "Utilities", Weight: 0.3}},
		CommunityRunners: []models.RunnerRow{
			{Sector: "Energy", Ticker: "XOM", Return30d: 0.3},
			{Sector: "Utilities", Ticker: "NEE", Return30d: 0.1},
			{Sector: "Energy", Ticker: "CVX", Return30d: 0.1},
			{Sector: "Energy", Ticker: "XOM", Return30d: -0.1},
		},
	}

	out := Breakdown(f)
	require.Len(t, out, 2)

	energy := out[0]
	assert.Equal(t, "Energy", energy.Sector)
	assert.Equal(t, 0.7, energy.Weight)
	assert.Equal(t, 3, energy.Runners)
	assert.Equal(t, 2, energy.UniqueTicker)
	assert.InDelta(t, 0.1, energy.MeanReturn, 1e-12)
	assert.InDelta(t, 0.2, energy.StdDevReturn, 1e-12)
	assert.Equal(t, "XOM", energy.BestTicker)
	assert.Equal(t, 0.3, energy.BestReturn)

	utilities := out[1]
	assert.Equal(t, 1, utilities.Runners)
	assert.Equal(t, 0.0, utilities.StdDevReturn)
	assert.False(t, math.IsNaN(utilities.MeanReturn))
}
