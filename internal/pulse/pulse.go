// Package pulse builds the market pulse: trailing-return leaders among sector ETFs
// and among the tickers of the user's top spend sectors.
package pulse

import (
	"context"
	"fmt"
	"sort"

	"github.com/rewired-gh/sectorflow/internal/alignment"
	"github.com/rewired-gh/sectorflow/internal/feed"
	"github.com/rewired-gh/sectorflow/internal/market"
	"github.com/rewired-gh/sectorflow/internal/models"
	"github.com/rewired-gh/sectorflow/internal/spend"
)

// Leader list sizes.
const (
	MaxSpendSectors = 5
	SectorLeaders   = 5
	TickerLeaders   = 10
)

// SectorETF is one entry of the sector ETF catalogue.
type SectorETF struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

// SectorETFs returns the SPDR sector ETF catalogue.
func SectorETFs() []SectorETF {
	out := make([]SectorETF, len(sectorETFs))
	copy(out, sectorETFs)
	return out
}

var sectorETFs = []SectorETF{
	{Ticker: "XLC", Name: "Communication Services"},
	{Ticker: "XLY", Name: "Consumer Discretionary"},
	{Ticker: "XLP", Name: "Consumer Staples"},
	{Ticker: "XLE", Name: "Energy"},
	{Ticker: "XLF", Name: "Financials"},
	{Ticker: "XLV", Name: "Healthcare"},
	{Ticker: "XLI", Name: "Industrials"},
	{Ticker: "XLB", Name: "Materials"},
	{Ticker: "XLK", Name: "Technology"},
	{Ticker: "XLU", Name: "Utilities"},
	{Ticker: "XLRE", Name: "Real Estate"},
}

// Leader is a return record labelled with its sector.
type Leader struct {
	models.ReturnRecord
	Sector string `json:"sector"`
}

// Pulse is the market pulse view. AsOf is the most recent price date seen, or
// empty when no returns were available.
type Pulse struct {
	AsOf          string   `json:"asOf"`
	SpendSectors  []string `json:"spendSectors"`
	SectorLeaders []Leader `json:"sectorLeaders"`
	TickerLeaders []Leader `json:"tickerLeaders"`
}

// ReturnSource computes trailing returns for a batch of tickers.
type ReturnSource interface {
	Returns(ctx context.Context, tickers []string) ([]models.ReturnRecord, []market.Failure, error)
}

// Service builds pulses.
type Service struct {
	source   ReturnSource
	universe feed.Universe
}

// NewService creates a pulse service.
func NewService(source ReturnSource, universe feed.Universe) *Service {
	return &Service{source: source, universe: universe}
}

// Build computes the pulse for up to MaxSpendSectors spend sectors.
func (s *Service) Build(ctx context.Context, spendSectors []string) (Pulse, error) {
	sectors := s.canonicalSectors(spendSectors)

	etfTickers := make([]string, len(sectorETFs))
	names := make(map[string]string, len(sectorETFs))
	for i, etf := range sectorETFs {
		etfTickers[i] = etf.Ticker
		names[etf.Ticker] = etf.Name
	}

	etfRecords, _, err := s.source.Returns(ctx, etfTickers)
	if err != nil {
		return Pulse{}, fmt.Errorf("failed to fetch sector ETF returns: %w", err)
	}
	p := Pulse{
		SpendSectors: sectors,
		SectorLeaders: leaders(etfRecords, SectorLeaders, func(ticker string) string {
			return names[ticker]
		}),
		TickerLeaders: []Leader{},
	}

	if tickers := s.tickersFor(sectors); len(tickers) > 0 {
		records, _, err := s.source.Returns(ctx, tickers)
		if err != nil {
			return Pulse{}, fmt.Errorf("failed to fetch spend sector returns: %w", err)
		}
		p.TickerLeaders = leaders(records, TickerLeaders, func(ticker string) string {
			if sector, ok := s.universe.SectorOf(ticker); ok {
				return sector
			}
			return spend.Unmapped
		})
	}

	for _, l := range append(p.SectorLeaders, p.TickerLeaders...) {
		if l.LatestDate > p.AsOf {
			p.AsOf = l.LatestDate
		}
	}
	return p, nil
}

func (s *Service) canonicalSectors(in []string) []string {
	out := make([]string, 0, MaxSpendSectors)
	for _, sector := range alignment.NormalizeSectors(in) {
		if len(out) == MaxSpendSectors {
			break
		}
		if canonical, ok := s.universe.Lookup(sector); ok {
			sector = canonical
		}
		out = append(out, sector)
	}
	return out
}

func (s *Service) tickersFor(sectors []string) []string {
	var tickers []string
	for _, sector := range sectors {
		tickers = append(tickers, s.universe.Tickers(sector)...)
	}
	return alignment.NormalizeTickers(tickers)
}

// leaders sorts records by return descending, keeps n and labels them.
func leaders(records []models.ReturnRecord, n int, label func(ticker string) string) []Leader {
	sorted := make([]models.ReturnRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Return30d > sorted[j].Return30d
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	out := make([]Leader, len(sorted))
	for i, rec := range sorted {
		out[i] = Leader{ReturnRecord: rec, Sector: label(rec.Ticker)}
	}
	return out
}
