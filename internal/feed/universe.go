package feed

import (
	"errors"
	"fmt"
	"strings"
)

// Universe is the fixed sector and ticker catalogue the generators sample from.
// It is immutable after construction; accessors return copies.
type Universe struct {
	sectors []string
	tickers map[string][]string
}

// NewUniverse builds a universe from an ordered sector list and a sector→tickers map.
// Every sector must have at least one ticker.
func NewUniverse(sectors []string, tickers map[string][]string) (Universe, error) {
	if len(sectors) == 0 {
		return Universe{}, errors.New("universe must contain at least one sector")
	}
	u := Universe{
		sectors: make([]string, 0, len(sectors)),
		tickers: make(map[string][]string, len(sectors)),
	}
	for _, s := range sectors {
		if _, dup := u.tickers[s]; dup {
			return Universe{}, fmt.Errorf("duplicate sector %q", s)
		}
		list := tickers[s]
		if len(list) == 0 {
			return Universe{}, fmt.Errorf("sector %q has no tickers", s)
		}
		cp := make([]string, len(list))
		for i, t := range list {
			cp[i] = strings.ToUpper(strings.TrimSpace(t))
		}
		u.sectors = append(u.sectors, s)
		u.tickers[s] = cp
	}
	return u, nil
}

// DefaultUniverse returns the canonical 12-sector catalogue.
func DefaultUniverse() Universe {
	u, err := NewUniverse(defaultSectors, defaultTickers)
	if err != nil {
		panic(err)
	}
	return u
}

// Sectors returns the sector names in canonical order.
func (u Universe) Sectors() []string {
	out := make([]string, len(u.sectors))
	copy(out, u.sectors)
	return out
}

// Tickers returns the tickers of sector, or nil for an unknown sector.
func (u Universe) Tickers(sector string) []string {
	list, ok := u.tickers[sector]
	if !ok {
		return nil
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// SectorOf returns the first sector listing ticker, in canonical order.
func (u Universe) SectorOf(ticker string) (string, bool) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	for _, s := range u.sectors {
		for _, t := range u.tickers[s] {
			if t == ticker {
				return s, true
			}
		}
	}
	return "", false
}

// Lookup resolves a sector name case-insensitively to its canonical spelling.
func (u Universe) Lookup(sector string) (string, bool) {
	for _, s := range u.sectors {
		if strings.EqualFold(s, strings.TrimSpace(sector)) {
			return s, true
		}
	}
	return "", false
}

var defaultSectors = []string{
	"Technology",
	"Consumer & Retail",
	"Healthcare",
	"Financials",
	"Energy",
	"Industrials",
	"Transportation",
	"Restaurants",
	"Media & Entertainment",
	"Materials",
	"Utilities",
	"Real Estate",
}

var defaultTickers = map[string][]string{
	"Technology":            {"AAPL", "MSFT", "NVDA", "GOOGL", "META", "AVGO", "AMD", "ORCL", "CRM", "ADBE", "INTC", "TSM", "QCOM", "SNOW", "SHOP"},
	"Consumer & Retail":     {"AMZN", "TGT", "WMT", "COST", "HD", "LOW", "NKE", "SBUX", "MCD", "KO", "PEP", "PG", "UL", "ETSY", "EBAY"},
	"Healthcare":            {"UNH", "JNJ", "MRK", "PFE", "ABBV", "CVS", "LLY", "BMY", "AMGN", "GILD", "ISRG", "ZTS"},
	"Financials":            {"JPM", "BAC", "GS", "MS", "C", "WFC", "V", "MA", "AXP", "SCHW", "BLK"},
	"Energy":                {"XOM", "CVX", "COP", "SLB", "PSX", "OXY", "EOG", "MPC", "VLO"},
	"Industrials":           {"CAT", "GE", "HON", "DE", "MMM", "BA", "LMT", "RTX", "UPS", "FDX"},
	"Transportation":        {"UBER", "LYFT", "DAL", "LUV", "UAL", "CSX", "NSC"},
	"Restaurants":           {"MCD", "SBUX", "CMG", "YUM", "DPZ", "QSR", "WEN", "SHAK"},
	"Media & Entertainment": {"NFLX", "DIS", "WBD", "SPOT", "PARA", "RBLX"},
	"Materials":             {"LIN", "APD", "SHW", "DD", "ECL", "NEM"},
	"Utilities":             {"NEE", "DUK", "SO", "AEP", "EXC"},
	"Real Estate":           {"PLD", "AMT", "EQIX", "O", "SPG"},
}
