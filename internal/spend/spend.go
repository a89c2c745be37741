// Package spend summarises personal transactions into merchant and sector totals.
// The summary's top sectors and tickers are the personal side of the alignment.
package spend

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Unmapped is the sector of merchants without a mapping.
const Unmapped = "Other / Unmapped"

// UnknownMerchant labels transactions without a merchant name.
const UnknownMerchant = "Unknown"

// MaxTopSectors caps the personal top-sector list.
const MaxTopSectors = 5

// Transaction is one normalized spend record.
type Transaction struct {
	Merchant string          `json:"merchant"`
	Amount   decimal.Decimal `json:"amount"`
}

// MerchantTotal is the aggregated spend of one merchant.
type MerchantTotal struct {
	Merchant string          `json:"merchant"`
	Sector   string          `json:"sector"`
	Total    decimal.Decimal `json:"total"`
	Share    float64         `json:"share"`
}

// SectorTotal is the aggregated spend of one sector.
type SectorTotal struct {
	Sector string          `json:"sector"`
	Total  decimal.Decimal `json:"total"`
	Share  float64         `json:"share"`
}

// Summary is the personal spend view.
type Summary struct {
	Total      decimal.Decimal `json:"total"`
	Merchants  []MerchantTotal `json:"merchants"`
	Sectors    []SectorTotal   `json:"sectors"`
	TopSectors []string        `json:"topSectors"`
	Tickers    []string        `json:"tickers"`
}

// Catalog resolves sector names and their tickers.
type Catalog interface {
	Lookup(sector string) (string, bool)
	Tickers(sector string) []string
}

// NormalizeMerchant returns the lookup key of a merchant name.
func NormalizeMerchant(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Summarize totals txs per merchant and per sector. sectorMap is keyed by normalized
// merchant name; merchants missing from it fall into Unmapped. Sector names are
// canonicalized through catalog when known.
func Summarize(txs []Transaction, sectorMap map[string]string, catalog Catalog) Summary {
	total := decimal.Zero
	merchantTotals := make(map[string]*MerchantTotal)
	var merchantOrder []string

	for _, tx := range txs {
		name := strings.TrimSpace(tx.Merchant)
		if name == "" {
			name = UnknownMerchant
		}
		key := NormalizeMerchant(name)

		total = total.Add(tx.Amount)
		mt, ok := merchantTotals[key]
		if !ok {
			mt = &MerchantTotal{Merchant: name, Sector: resolveSector(sectorMap[key], catalog), Total: decimal.Zero}
			merchantTotals[key] = mt
			merchantOrder = append(merchantOrder, key)
		}
		mt.Total = mt.Total.Add(tx.Amount)
	}

	merchants := make([]MerchantTotal, 0, len(merchantOrder))
	sectorTotals := make(map[string]decimal.Decimal)
	for _, key := range merchantOrder {
		mt := *merchantTotals[key]
		mt.Share = share(mt.Total, total)
		merchants = append(merchants, mt)
		sectorTotals[mt.Sector] = sectorTotals[mt.Sector].Add(mt.Total)
	}
	sort.SliceStable(merchants, func(i, j int) bool {
		return merchants[i].Total.GreaterThan(merchants[j].Total)
	})

	sectors := make([]SectorTotal, 0, len(sectorTotals))
	for sector, t := range sectorTotals {
		sectors = append(sectors, SectorTotal{Sector: sector, Total: t, Share: share(t, total)})
	}
	sort.Slice(sectors, func(i, j int) bool {
		if c := sectors[i].Total.Cmp(sectors[j].Total); c != 0 {
			return c > 0
		}
		return sectors[i].Sector < sectors[j].Sector
	})

	top := make([]string, 0, MaxTopSectors)
	for _, st := range sectors {
		if len(top) == MaxTopSectors {
			break
		}
		if st.Sector == Unmapped {
			continue
		}
		top = append(top, st.Sector)
	}

	return Summary{
		Total:      total,
		Merchants:  merchants,
		Sectors:    sectors,
		TopSectors: top,
		Tickers:    tickersFor(top, catalog),
	}
}

func resolveSector(mapped string, catalog Catalog) string {
	mapped = strings.TrimSpace(mapped)
	if mapped == "" || strings.EqualFold(mapped, Unmapped) {
		return Unmapped
	}
	if catalog != nil {
		if canonical, ok := catalog.Lookup(mapped); ok {
			return canonical
		}
	}
	return mapped
}

func tickersFor(sectors []string, catalog Catalog) []string {
	out := []string{}
	if catalog == nil {
		return out
	}
	seen := make(map[string]bool)
	for _, s := range sectors {
		for _, t := range catalog.Tickers(s) {
			if seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func share(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).InexactFloat64()
}
