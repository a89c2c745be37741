// Package storage archives community feed snapshots in SQLite.
//
// One snapshot is kept per as-of date; saving the same date again replaces it.
// The archive is rotated to a configured number of most recent dates so the
// database does not grow without bound.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/rewired-gh/sectorflow/internal/models"
)

// ErrNotFound is returned when no snapshot exists for a date.
var ErrNotFound = errors.New("snapshot not found")

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id          TEXT PRIMARY KEY,
	as_of       TEXT NOT NULL UNIQUE,
	narrative   TEXT NOT NULL,
	runners     INTEGER NOT NULL,
	feed_json   TEXT NOT NULL,
	source      TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);
`

// Store is a SQLite-backed snapshot archive. It is safe for concurrent use.
type Store struct {
	db           *sql.DB
	path         string
	maxSnapshots int
}

// Open opens or creates the archive at path. An empty path or ":memory:" opens an
// in-memory database.
func Open(path string, maxSnapshots int) (*Store, error) {
	dsn := ":memory:"
	if path != "" && path != ":memory:" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		path = absPath
		dsn = absPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps in-memory databases alive.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db, path: path, maxSnapshots: maxSnapshots}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot archives feed under a new ID, replacing any snapshot of the same date,
// and rotates the archive.
func (s *Store) SaveSnapshot(ctx context.Context, feed models.CommunityFeed, source string) (*models.Snapshot, error) {
	snap := &models.Snapshot{
		ID:        uuid.New().String(),
		AsOf:      feed.AsOf,
		Feed:      feed,
		CreatedAt: time.Now().UTC(),
		Source:    source,
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	data, err := json.Marshal(feed)
	if err != nil {
		return nil, fmt.Errorf("failed to encode feed: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, as_of, narrative, runners, feed_json, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(as_of) DO UPDATE SET
			id = excluded.id,
			narrative = excluded.narrative,
			runners = excluded.runners,
			feed_json = excluded.feed_json,
			source = excluded.source,
			created_at = excluded.created_at`,
		snap.ID, snap.AsOf, feed.NarrativeHighestSector, len(feed.CommunityRunners),
		string(data), snap.Source, snap.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to save snapshot %s: %w", snap.AsOf, err)
	}

	if _, err := s.RotateSnapshots(ctx); err != nil {
		return nil, err
	}
	return snap, nil
}

// GetSnapshot returns the snapshot of asOf, or ErrNotFound.
func (s *Store) GetSnapshot(ctx context.Context, asOf string) (*models.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, as_of, feed_json, source, created_at FROM snapshots WHERE as_of = ?`, asOf)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return snap, err
}

// LatestBefore returns the most recent snapshot dated strictly before asOf, or nil
// when there is none.
func (s *Store) LatestBefore(ctx context.Context, asOf string) (*models.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, as_of, feed_json, source, created_at FROM snapshots
		WHERE as_of < ? ORDER BY as_of DESC LIMIT 1`, asOf)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return snap, err
}

// ListSnapshots returns up to limit snapshot headers, newest date first.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]models.SnapshotHeader, error) {
	if limit <= 0 {
		limit = s.maxSnapshots
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, as_of, narrative, runners, created_at FROM snapshots
		ORDER BY as_of DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	headers := []models.SnapshotHeader{}
	for rows.Next() {
		var h models.SnapshotHeader
		var createdAt int64
		if err := rows.Scan(&h.ID, &h.AsOf, &h.NarrativeHighestSector, &h.Runners, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot header: %w", err)
		}
		h.CreatedAt = time.Unix(0, createdAt).UTC()
		headers = append(headers, h)
	}
	return headers, rows.Err()
}

// Count returns the number of archived snapshots.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}

// RotateSnapshots keeps only the maxSnapshots most recent dates and returns the
// number of rows removed.
func (s *Store) RotateSnapshots(ctx context.Context) (int, error) {
	if s.maxSnapshots <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots WHERE as_of NOT IN (
			SELECT as_of FROM snapshots ORDER BY as_of DESC LIMIT ?
		)`, s.maxSnapshots)
	if err != nil {
		return 0, fmt.Errorf("failed to rotate snapshots: %w", err)
	}
	return rotatedCount(res)
}

func rotatedCount(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count rotated snapshots: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*models.Snapshot, error) {
	var snap models.Snapshot
	var data string
	var createdAt int64
	if err := row.Scan(&snap.ID, &snap.AsOf, &data, &snap.Source, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &snap.Feed); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", snap.AsOf, err)
	}
	snap.CreatedAt = time.Unix(0, createdAt).UTC()
	return &snap, nil
}
