// Package monitor detects how the community feed shifts between two as-of dates.
//
// Each sector present in either feed's top list gets one shift: entered, exited,
// moved (rank changed) or held. Shifts carry the weight delta and are ordered by
// its magnitude, so the largest reallocations come first. Held sectors whose
// weight moved less than a small floor are dropped as noise.
package monitor

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rewired-gh/sectorflow/internal/logger"
	"github.com/rewired-gh/sectorflow/internal/models"
)

// minWeightChange is the floor below which a held sector is not reported.
const minWeightChange = 0.001

// runnerWindow is the number of leading runners compared for turnover.
const runnerWindow = 10

// SnapshotSource provides archived feeds.
type SnapshotSource interface {
	LatestBefore(ctx context.Context, asOf string) (*models.Snapshot, error)
}

// Report is the comparison of a feed with its predecessor.
type Report struct {
	AsOf           string               `json:"asOf"`
	PrevAsOf       string               `json:"prevAsOf"`
	Shifts         []models.SectorShift `json:"shifts"`
	LeaderChanged  bool                 `json:"leaderChanged"`
	RunnerTurnover float64              `json:"runnerTurnover"`
}

// Monitor compares generated feeds against the snapshot archive.
type Monitor struct {
	source SnapshotSource
}

// New creates a new Monitor instance
func New(source SnapshotSource) *Monitor {
	return &Monitor{source: source}
}

// Compare reports the shifts of curr against the latest archived feed before it.
// It returns nil when the archive holds no earlier feed.
func (m *Monitor) Compare(ctx context.Context, curr models.CommunityFeed) (*Report, error) {
	prev, err := m.source.LatestBefore(ctx, curr.AsOf)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous snapshot: %w", err)
	}
	if prev == nil {
		logger.Debug("Compare: no snapshot before %s", curr.AsOf)
		return nil, nil
	}

	shifts := DetectShifts(prev.Feed, curr)
	report := &Report{
		AsOf:           curr.AsOf,
		PrevAsOf:       prev.AsOf,
		Shifts:         shifts,
		RunnerTurnover: RunnerTurnover(prev.Feed, curr),
	}
	for _, s := range shifts {
		if s.NewLeader {
			report.LeaderChanged = true
		}
	}

	logger.Debug("Compare: %s vs %s, %d shifts, leader changed=%v, turnover=%.2f",
		curr.AsOf, prev.AsOf, len(shifts), report.LeaderChanged, report.RunnerTurnover)
	return report, nil
}

type position struct {
	rank   int
	weight float64
}

func positions(f models.CommunityFeed) (map[string]position, []string) {
	pos := make(map[string]position, len(f.TopSectors))
	order := make([]string, 0, len(f.TopSectors))
	for i, sw := range f.TopSectors {
		if _, dup := pos[sw.Sector]; dup {
			continue
		}
		pos[sw.Sector] = position{rank: i + 1, weight: sw.Weight}
		order = append(order, sw.Sector)
	}
	return pos, order
}

// DetectShifts compares the top-sector lists of prev and curr. Sectors held at the same
// rank are omitted when their weight moved less than minWeightChange. The result is sorted
// by absolute weight delta descending, ties broken by sector name, and is never nil.
func DetectShifts(prev, curr models.CommunityFeed) []models.SectorShift {
	prevPos, prevOrder := positions(prev)
	currPos, currOrder := positions(curr)

	var prevLeader, currLeader string
	if len(prevOrder) > 0 {
		prevLeader = prevOrder[0]
	}
	if len(currOrder) > 0 {
		currLeader = currOrder[0]
	}

	shifts := []models.SectorShift{}
	for _, sector := range append(currOrder, prevOrder...) {
		if containsShift(shifts, sector) {
			continue
		}
		p, inPrev := prevPos[sector]
		c, inCurr := currPos[sector]

		s := models.SectorShift{
			Sector:      sector,
			OldRank:     p.rank,
			NewRank:     c.rank,
			OldWeight:   p.weight,
			NewWeight:   c.weight,
			WeightDelta: c.weight - p.weight,
			NewLeader:   sector == currLeader && currLeader != prevLeader,
		}
		switch {
		case !inPrev:
			s.Kind = models.ShiftEntered
		case !inCurr:
			s.Kind = models.ShiftExited
		case p.rank != c.rank:
			s.Kind = models.ShiftMoved
		default:
			s.Kind = models.ShiftHeld
			if math.Abs(s.WeightDelta) < minWeightChange {
				continue
			}
		}
		shifts = append(shifts, s)
	}

	sort.SliceStable(shifts, func(i, j int) bool {
		di, dj := math.Abs(shifts[i].WeightDelta), math.Abs(shifts[j].WeightDelta)
		if di != dj {
			return di > dj
		}
		return shifts[i].Sector < shifts[j].Sector
	})
	return shifts
}

func containsShift(shifts []models.SectorShift, sector string) bool {
	for _, s := range shifts {
		if s.Sector == sector {
			return true
		}
	}
	return false
}

// RunnerTurnover is the share of distinct tickers among curr's leading runners that
// were absent from prev's leading runners. It is 0 when curr has no runners.
func RunnerTurnover(prev, curr models.CommunityFeed) float64 {
	before := make(map[string]bool)
	for i, r := range prev.CommunityRunners {
		if i >= runnerWindow {
			break
		}
		before[strings.ToUpper(r.Ticker)] = true
	}

	seen := make(map[string]bool)
	fresh := 0
	for i, r := range curr.CommunityRunners {
		if i >= runnerWindow {
			break
		}
		t := strings.ToUpper(r.Ticker)
		if seen[t] {
			continue
		}
		seen[t] = true
		if !before[t] {
			fresh++
		}
	}
	if len(seen) == 0 {
		return 0
	}
	return float64(fresh) / float64(len(seen))
}
