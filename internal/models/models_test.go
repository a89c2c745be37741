package models

import (
	"testing"
	"time"
)

func validFeed() CommunityFeed {
	return CommunityFeed{
		AsOf:                   "2025-03-14",
		NarrativeHighestSector: "Technology",
		TopSectors: []SectorWeight{
			{Sector: "Technology", Weight: 0.6},
			{Sector: "Energy", Weight: 0.4},
		},
		CommunityRunners: []RunnerRow{
			{Sector: "Technology", Ticker: "AAPL", Return30d: 0.2, Signal: "Broad-based · High breadth · Stable"},
			{Sector: "Energy", Ticker: "XOM", Return30d: -0.1, Signal: "Broad-based · High breadth · Spiky"},
		},
	}
}

func TestCommunityFeedValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *CommunityFeed)
		wantErr bool
	}{
		{
			name:    "valid feed",
			mutate:  func(f *CommunityFeed) {},
			wantErr: false,
		},
		{
			name:    "bad as-of",
			mutate:  func(f *CommunityFeed) { f.AsOf = "14/03/2025" },
			wantErr: true,
		},
		{
			name: "weights don't sum to 1",
			mutate: func(f *CommunityFeed) {
				f.TopSectors[1].Weight = 0.3
			},
			wantErr: true,
		},
		{
			name: "weights not descending",
			mutate: func(f *CommunityFeed) {
				f.TopSectors[0].Weight, f.TopSectors[1].Weight = 0.4, 0.6
				f.NarrativeHighestSector = "Technology"
			},
			wantErr: true,
		},
		{
			name:    "narrative mismatch",
			mutate:  func(f *CommunityFeed) { f.NarrativeHighestSector = "Energy" },
			wantErr: true,
		},
		{
			name: "runners not sorted",
			mutate: func(f *CommunityFeed) {
				f.CommunityRunners[0].Return30d = -0.2
			},
			wantErr: true,
		},
		{
			name: "empty feed is valid",
			mutate: func(f *CommunityFeed) {
				f.TopSectors = nil
				f.CommunityRunners = nil
				f.NarrativeHighestSector = "—"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFeed()
			tt.mutate(&f)
			err := f.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("CommunityFeed.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReturnRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		record  ReturnRecord
		wantErr bool
	}{
		{
			name:    "valid record",
			record:  ReturnRecord{Ticker: "AAPL", Return30d: 0.11, LatestDate: "2025-03-14", OlderDate: "2025-02-11"},
			wantErr: false,
		},
		{
			name:    "empty ticker",
			record:  ReturnRecord{Return30d: 0.11, LatestDate: "2025-03-14", OlderDate: "2025-02-11"},
			wantErr: true,
		},
		{
			name:    "dates reversed",
			record:  ReturnRecord{Ticker: "AAPL", LatestDate: "2025-02-11", OlderDate: "2025-03-14"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("ReturnRecord.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSnapshotValidate(t *testing.T) {
	tests := []struct {
		name     string
		snapshot Snapshot
		wantErr  bool
	}{
		{
			name:     "valid snapshot",
			snapshot: Snapshot{ID: "snap-1", AsOf: "2025-03-14", Feed: validFeed(), CreatedAt: time.Now(), Source: "digest"},
			wantErr:  false,
		},
		{
			name:     "empty ID",
			snapshot: Snapshot{AsOf: "2025-03-14", Feed: validFeed(), CreatedAt: time.Now(), Source: "digest"},
			wantErr:  true,
		},
		{
			name:     "as-of mismatch",
			snapshot: Snapshot{ID: "snap-1", AsOf: "2025-03-15", Feed: validFeed(), CreatedAt: time.Now(), Source: "digest"},
			wantErr:  true,
		},
		{
			name:     "future timestamp",
			snapshot: Snapshot{ID: "snap-1", AsOf: "2025-03-14", Feed: validFeed(), CreatedAt: time.Now().Add(time.Hour), Source: "digest"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snapshot.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Snapshot.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSectorShiftValidate(t *testing.T) {
	tests := []struct {
		name    string
		shift   SectorShift
		wantErr bool
	}{
		{
			name:    "entered",
			shift:   SectorShift{Sector: "Energy", Kind: ShiftEntered, NewRank: 3, NewWeight: 0.2, WeightDelta: 0.2},
			wantErr: false,
		},
		{
			name:    "exited with new rank",
			shift:   SectorShift{Sector: "Energy", Kind: ShiftExited, OldRank: 2, NewRank: 1, OldWeight: 0.2, WeightDelta: -0.2},
			wantErr: true,
		},
		{
			name:    "delta mismatch",
			shift:   SectorShift{Sector: "Energy", Kind: ShiftMoved, OldRank: 1, NewRank: 2, OldWeight: 0.3, NewWeight: 0.2, WeightDelta: 0.1},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			shift:   SectorShift{Sector: "Energy", Kind: "sideways"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.shift.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("SectorShift.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunnerRowKey(t *testing.T) {
	r := RunnerRow{Sector: "Restaurants", Ticker: "MCD"}
	if r.Key() != "Restaurants:MCD" {
		t.Errorf("unexpected key %q", r.Key())
	}
}
