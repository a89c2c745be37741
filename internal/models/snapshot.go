package models

import (
	"errors"
	"time"
)

// Snapshot is an archived community feed, stored by the daily digest job.
type Snapshot struct {
	ID        string        `json:"id"`
	AsOf      string        `json:"asOf"`
	Feed      CommunityFeed `json:"feed"`
	CreatedAt time.Time     `json:"createdAt"`
	Source    string        `json:"source"`
}

// SnapshotHeader is the summary row listed by the history endpoint.
type SnapshotHeader struct {
	ID                     string    `json:"id"`
	AsOf                   string    `json:"asOf"`
	NarrativeHighestSector string    `json:"narrativeHighestSector"`
	Runners                int       `json:"runners"`
	CreatedAt              time.Time `json:"createdAt"`
}

// Validate checks that all snapshot fields are valid
func (s *Snapshot) Validate() error {
	if s.ID == "" {
		return errors.New("snapshot ID must not be empty")
	}
	if s.AsOf != s.Feed.AsOf {
		return errors.New("snapshot as-of must match feed as-of")
	}
	if s.CreatedAt.After(time.Now().Add(time.Minute)) {
		return errors.New("created at must not be in the future")
	}
	if s.Source == "" {
		return errors.New("source must not be empty")
	}
	return s.Feed.Validate()
}
