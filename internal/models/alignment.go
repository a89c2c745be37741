package models

// AlignmentResult is the overlap between a personal sector/ticker set and the community feed.
type AlignmentResult struct {
	AsOf          string      `json:"asOf"`
	SectorOverlap []string    `json:"sectorOverlap"`
	TickerOverlap []RunnerRow `json:"tickerOverlap"`
}
