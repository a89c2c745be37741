// Package prices turns raw daily price tables into trailing returns.
// It performs no I/O; fetching lives in the stooq and market packages.
package prices

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rewired-gh/sectorflow/internal/models"
)

// DefaultTrailingDays is the lookback of the trailing return.
const DefaultTrailingDays = 30

const (
	minLines    = 3 // header plus two rows
	minFields   = 5
	closeColumn = 4
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	time.RFC3339,
}

// ParseSeries parses a header-led CSV table of daily prices (Date,Open,High,Low,Close,...)
// and returns the valid observations sorted by date descending.
// Rows with too few fields, an unparseable date or a non-finite close are skipped.
func ParseSeries(raw string) []models.PriceObservation {
	lines := make([]string, 0, 64)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < minLines {
		return []models.PriceObservation{}
	}

	series := make([]models.PriceObservation, 0, len(lines)-1)
	for _, line := range lines[1:] {
		obs, ok := parseRow(line)
		if !ok {
			continue
		}
		series = append(series, obs)
	}

	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Date.After(series[j].Date)
	})
	return series
}

func parseRow(line string) (models.PriceObservation, bool) {
	cols := strings.Split(line, ",")
	if len(cols) < minFields {
		return models.PriceObservation{}, false
	}

	date, ok := parseDate(strings.TrimSpace(cols[0]))
	if !ok {
		return models.PriceObservation{}, false
	}

	closePrice, err := strconv.ParseFloat(strings.TrimSpace(cols[closeColumn]), 64)
	if err != nil || math.IsNaN(closePrice) || math.IsInf(closePrice, 0) {
		return models.PriceObservation{}, false
	}

	return models.PriceObservation{Date: date, Close: closePrice}, true
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// TrailingReturn computes the return between the latest observation and the first one
// at least days older, falling back to the earliest observation when the series is
// shorter than the lookback. series must be sorted by date descending.
// The second result is false when no return is available: fewer than two observations
// or a non-positive base close.
func TrailingReturn(series []models.PriceObservation, ticker string, days int) (models.ReturnRecord, bool) {
	if len(series) < 2 {
		return models.ReturnRecord{}, false
	}

	latest := series[0]
	cutoff := latest.Date.AddDate(0, 0, -days)

	older := series[len(series)-1]
	for _, obs := range series {
		if !obs.Date.After(cutoff) {
			older = obs
			break
		}
	}
	if older.Close <= 0 {
		return models.ReturnRecord{}, false
	}

	return models.ReturnRecord{
		Ticker:     strings.ToUpper(ticker),
		Return30d:  (latest.Close - older.Close) / older.Close,
		LatestDate: models.FormatDate(latest.Date),
		OlderDate:  models.FormatDate(older.Date),
	}, true
}

// Compute parses raw and returns its trailing record in one step.
func Compute(raw, ticker string, days int) (models.ReturnRecord, bool) {
	return TrailingReturn(ParseSeries(raw), ticker, days)
}
