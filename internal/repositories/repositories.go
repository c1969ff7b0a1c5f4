// package repositories provides persistence layer implementations for the history table.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tunepull/internal/models"
	"github.com/desertthunder/tunepull/internal/shared"
)

const acquisitionColumns = `id, run_id, playlist_id, track_key, status, source, path, error, created_at`

// HistoryRepository stores [models.Acquisition] rows.
type HistoryRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewHistoryRepository creates a new HistoryRepository with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db, now: time.Now}
}

// Create inserts a [models.Acquisition], generating its ID and timestamp when unset.
func (r *HistoryRepository) Create(ctx context.Context, a *models.Acquisition) error {
	if a.TrackKey == "" || a.RunID == "" || a.Status == "" {
		return fmt.Errorf("%w: acquisition requires run_id, track_key and status", shared.ErrInvalidInput)
	}
	if a.ID == "" {
		a.ID = shared.GenerateID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now().UTC()
	}

	query := `INSERT INTO acquisitions (` + acquisitionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.RunID,
		a.PlaylistID,
		a.TrackKey,
		string(a.Status),
		a.Source,
		a.Path,
		a.Error,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert acquisition: %w", err)
	}
	return nil
}

// RecordOutcome stores a single engine outcome.
func (r *HistoryRepository) RecordOutcome(ctx context.Context, runID, playlistID string, o models.Outcome) error {
	return r.Create(ctx, &models.Acquisition{
		RunID:      runID,
		PlaylistID: playlistID,
		TrackKey:   o.Key,
		Status:     o.Status,
		Source:     o.Source,
		Path:       o.Path,
		Error:      o.Error(),
	})
}

// Get retrieves an acquisition by ID
func (r *HistoryRepository) Get(ctx context.Context, id string) (*models.Acquisition, error) {
	query := `SELECT ` + acquisitionColumns + ` FROM acquisitions WHERE id = ?`
	a, err := scan(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: acquisition %s not found", shared.ErrInvalidArgument, id)
	}
	return a, err
}

// Recent returns the newest acquisitions first, up to limit (default 20).
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]*models.Acquisition, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + acquisitionColumns + ` FROM acquisitions ORDER BY created_at DESC, rowid DESC LIMIT ?`
	return r.list(ctx, query, limit)
}

// ByRun returns the acquisitions of one run in insertion order.
func (r *HistoryRepository) ByRun(ctx context.Context, runID string) ([]*models.Acquisition, error) {
	query := `SELECT ` + acquisitionColumns + ` FROM acquisitions WHERE run_id = ? ORDER BY rowid`
	return r.list(ctx, query, runID)
}

// ByTrack returns every acquisition attempt for a track key, newest first.
func (r *HistoryRepository) ByTrack(ctx context.Context, key string) ([]*models.Acquisition, error) {
	query := `SELECT ` + acquisitionColumns + ` FROM acquisitions WHERE track_key = ? ORDER BY created_at DESC, rowid DESC`
	return r.list(ctx, query, key)
}

// StatusCounts returns the number of rows per status.
func (r *HistoryRepository) StatusCounts(ctx context.Context) (map[models.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM acquisitions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count acquisitions: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[models.Status(status)] = n
	}
	return counts, rows.Err()
}

func (r *HistoryRepository) list(ctx context.Context, query string, args ...any) ([]*models.Acquisition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query acquisitions: %w", err)
	}
	defer rows.Close()

	var out []*models.Acquisition
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate acquisitions: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Acquisition, error) {
	var a models.Acquisition
	var status string
	if err := s.Scan(&a.ID, &a.RunID, &a.PlaylistID, &a.TrackKey, &status, &a.Source, &a.Path, &a.Error, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan acquisition: %w", err)
	}
	a.Status = models.Status(status)
	return &a, nil
}
