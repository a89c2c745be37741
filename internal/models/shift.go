package models

import (
	"errors"
	"math"
)

// Shift kinds between two feed snapshots.
const (
	ShiftEntered = "entered"
	ShiftExited  = "exited"
	ShiftMoved   = "moved"
	ShiftHeld    = "held"
)

// SectorShift describes how one sector's position changed between two feeds.
// Ranks are 1-based; 0 means the sector was absent from that feed's top list.
type SectorShift struct {
	Sector      string  `json:"sector"`
	Kind        string  `json:"kind"`
	OldRank     int     `json:"oldRank"`
	NewRank     int     `json:"newRank"`
	OldWeight   float64 `json:"oldWeight"`
	NewWeight   float64 `json:"newWeight"`
	WeightDelta float64 `json:"weightDelta"`
	NewLeader   bool    `json:"newLeader"`
}

// Validate checks that a shift is internally consistent
func (s *SectorShift) Validate() error {
	if s.Sector == "" {
		return errors.New("sector must not be empty")
	}
	if math.Abs(s.WeightDelta-(s.NewWeight-s.OldWeight)) > 1e-9 {
		return errors.New("weight delta must equal new weight - old weight")
	}
	switch s.Kind {
	case ShiftEntered:
		if s.OldRank != 0 || s.NewRank == 0 {
			return errors.New("entered shift must have only a new rank")
		}
	case ShiftExited:
		if s.OldRank == 0 || s.NewRank != 0 {
			return errors.New("exited shift must have only an old rank")
		}
	case ShiftMoved, ShiftHeld:
		if s.OldRank == 0 || s.NewRank == 0 {
			return errors.New("moved or held shift must have both ranks")
		}
	default:
		return errors.New("kind must be entered, exited, moved or held")
	}
	return nil
}
