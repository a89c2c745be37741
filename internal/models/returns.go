package models

import (
	"errors"
	"math"
	"time"
)

// PriceObservation is one daily close of a price series.
type PriceObservation struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// ReturnRecord is a trailing return computed from a price series.
// LatestDate and OlderDate are the boundary observations used, for traceability.
type ReturnRecord struct {
	Ticker     string  `json:"ticker"`
	Return30d  float64 `json:"return30d"`
	LatestDate string  `json:"latestDate"`
	OlderDate  string  `json:"olderDate"`
}

// Validate checks that a return record is complete and ordered.
func (r *ReturnRecord) Validate() error {
	if r.Ticker == "" {
		return errors.New("ticker must not be empty")
	}
	if math.IsNaN(r.Return30d) || math.IsInf(r.Return30d, 0) {
		return errors.New("return must be finite")
	}
	latest, err := ParseDate(r.LatestDate)
	if err != nil {
		return err
	}
	older, err := ParseDate(r.OlderDate)
	if err != nil {
		return err
	}
	if older.After(latest) {
		return errors.New("older date must not be after latest date")
	}
	return nil
}
