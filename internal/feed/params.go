package feed

import (
	"fmt"

	"github.com/rewired-gh/sectorflow/internal/config"
)

// Params are the sampling constants of the community feed.
// The defaults reproduce the reference feed exactly; they are tuning values, not derived ones.
type Params struct {
	CandidateSectors int // leading sectors of the universe considered for weighting
	TopSectors       int // sectors kept after ranking
	RunnerCount      int // target number of runner rows
	VarietyThreshold int // accepted rows before repeat picks are allowed
	PoolCopies       int // pool copies per unit of sector weight
	MinPool          int // smaller pools fall back to the whole universe
	IterationFactor  int // draw cap as a multiple of pool size
}

// DefaultParams returns the reference sampling constants.
func DefaultParams() Params {
	return Params{
		CandidateSectors: 8,
		TopSectors:       5,
		RunnerCount:      200,
		VarietyThreshold: 120,
		PoolCopies:       40,
		MinPool:          50,
		IterationFactor:  10,
	}
}

// ParamsFromConfig maps the feed section of the application config.
func ParamsFromConfig(c config.FeedConfig) Params {
	return Params{
		CandidateSectors: c.CandidateSectors,
		TopSectors:       c.TopSectors,
		RunnerCount:      c.RunnerCount,
		VarietyThreshold: c.VarietyThreshold,
		PoolCopies:       c.PoolCopies,
		MinPool:          c.MinPool,
		IterationFactor:  c.IterationFactor,
	}
}

// Validate checks the parameters against each other.
func (p Params) Validate() error {
	if p.TopSectors < 1 {
		return fmt.Errorf("top sectors must be at least 1, got %d", p.TopSectors)
	}
	if p.CandidateSectors < p.TopSectors {
		return fmt.Errorf("candidate sectors (%d) must be >= top sectors (%d)", p.CandidateSectors, p.TopSectors)
	}
	if p.RunnerCount < 1 {
		return fmt.Errorf("runner count must be at least 1, got %d", p.RunnerCount)
	}
	if p.VarietyThreshold < 0 || p.VarietyThreshold > p.RunnerCount {
		return fmt.Errorf("variety threshold must be within [0, %d], got %d", p.RunnerCount, p.VarietyThreshold)
	}
	if p.PoolCopies < 1 || p.IterationFactor < 1 || p.MinPool < 0 {
		return fmt.Errorf("pool copies and iteration factor must be positive")
	}
	return nil
}
