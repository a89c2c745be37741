// Package synth derives mock market metrics for (sector, ticker, as-of) triples.
//
// Every value is a pure function of the seed sampler, so the community feed for an as-of
// date is identical across requests and processes. The numbers stand in for a future
// aggregation pipeline and carry no statistical meaning.
package synth

import (
	"strings"

	"github.com/rewired-gh/sectorflow/internal/seed"
)

// Trailing return shape. The distribution is centred slightly above zero and clamped.
const (
	returnCenter = 0.45
	returnScale  = 0.55
	MinReturn    = -0.20
	MaxReturn    = 0.35
)

// Bucket thresholds shared by every signal facet.
const (
	upperThreshold = 0.66
	lowerThreshold = 0.33
)

// SignalSeparator joins the three facets of a signal label.
const SignalSeparator = " · "

// Facet labels, highest bucket first.
var (
	concentrationLabels = [3]string{"High spend concentration", "Moderate concentration", "Broad-based"}
	breadthLabels       = [3]string{"High breadth", "Medium breadth", "Narrow breadth"}
	stabilityLabels     = [3]string{"Stable", "Emerging", "Spiky"}
)

// TrailingReturn returns the synthetic 30-day return of ticker on asOf, in [MinReturn, MaxReturn].
func TrailingReturn(ticker, asOf string) float64 {
	u := seed.Sample(seed.Key("ticker-return", ticker, asOf))
	return clamp((u-returnCenter)*returnScale, MinReturn, MaxReturn)
}

// Signal returns the three-facet label for a runner. Concentration varies by sector,
// stability by ticker and breadth by the pair, so the facets move independently.
func Signal(sector, ticker, asOf string) string {
	concentration := bucket(seed.Sample(seed.Key("c", sector, asOf)), concentrationLabels)
	stability := bucket(seed.Sample(seed.Key("t", ticker, asOf)), stabilityLabels)
	breadth := bucket(seed.Sample(seed.Key("b", sector, ticker, asOf)), breadthLabels)
	return strings.Join([]string{concentration, breadth, stability}, SignalSeparator)
}

func bucket(u float64, labels [3]string) string {
	switch {
	case u > upperThreshold:
		return labels[0]
	case u > lowerThreshold:
		return labels[1]
	default:
		return labels[2]
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
