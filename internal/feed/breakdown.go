package feed

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/rewired-gh/sectorflow/internal/models"
)

// SectorSummary aggregates the runner rows of one sector.
type SectorSummary struct {
	Sector       string  `json:"sector"`
	Weight       float64 `json:"weight"`
	Runners      int     `json:"runners"`
	UniqueTicker int     `json:"uniqueTickers"`
	MeanReturn   float64 `json:"meanReturn"`
	StdDevReturn float64 `json:"stdDevReturn"`
	BestTicker   string  `json:"bestTicker"`
	BestReturn   float64 `json:"bestReturn"`
}

// Breakdown summarises a feed's runners per sector. Sectors are ordered by runner
// count descending, then by name. Weight is zero for sectors outside the top list.
func Breakdown(f models.CommunityFeed) []SectorSummary {
	weights := make(map[string]float64, len(f.TopSectors))
	for _, sw := range f.TopSectors {
		weights[sw.Sector] = sw.Weight
	}

	returns := make(map[string][]float64)
	tickers := make(map[string]map[string]bool)
	best := make(map[string]models.RunnerRow)
	var order []string

	// Runners are sorted by return descending, so the first row seen per sector is its best.
	for _, r := range f.CommunityRunners {
		if _, ok := returns[r.Sector]; !ok {
			order = append(order, r.Sector)
			tickers[r.Sector] = make(map[string]bool)
			best[r.Sector] = r
		}
		returns[r.Sector] = append(returns[r.Sector], r.Return30d)
		tickers[r.Sector][r.Ticker] = true
	}

	out := make([]SectorSummary, 0, len(order))
	for _, sector := range order {
		xs := returns[sector]
		mean, std := stat.MeanStdDev(xs, nil)
		if len(xs) < 2 {
			std = 0
		}
		out = append(out, SectorSummary{
			Sector:       sector,
			Weight:       weights[sector],
			Runners:      len(xs),
			UniqueTicker: len(tickers[sector]),
			MeanReturn:   mean,
			StdDevReturn: std,
			BestTicker:   best[sector].Ticker,
			BestReturn:   best[sector].Return30d,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Runners != out[j].Runners {
			return out[i].Runners > out[j].Runners
		}
		return out[i].Sector < out[j].Sector
	})
	return out
}
