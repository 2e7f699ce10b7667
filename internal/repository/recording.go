// Package repository reads and stores recordings in Postgres.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wisefido-ecg/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ErrRecordingNotFound no row for the requested id.
var ErrRecordingNotFound = errors.New("recording not found")

// RecordingInfo listing row without the sample payload.
type RecordingInfo struct {
	ID          string
	Name        string
	Format      models.Format
	FS          float64
	SampleCount int
	CreatedAt   time.Time
}

// RecordingRepository table ecg_recordings:
//
//	id TEXT PRIMARY KEY, name TEXT, format TEXT, fs DOUBLE PRECISION,
//	samples FLOAT8[], created_at TIMESTAMPTZ DEFAULT now()
type RecordingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecordingRepository creates a repository.
func NewRecordingRepository(db *sql.DB, logger *zap.Logger) *RecordingRepository {
	return &RecordingRepository{
		db:     db,
		logger: logger,
	}
}

// Fetch loads one recording by id.
func (r *RecordingRepository) Fetch(ctx context.Context, id string) (models.Recording, error) {
	query := `
		SELECT id, name, format, fs, samples
		FROM ecg_recordings
		WHERE id = $1
	`

	var (
		rec     models.Recording
		format  string
		samples pq.Float64Array
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.Name,
		&format,
		&rec.Signal.FS,
		&samples,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Recording{}, fmt.Errorf("%w: %s", ErrRecordingNotFound, id)
		}
		return models.Recording{}, fmt.Errorf("failed to query recording: %w", err)
	}

	rec.Format = models.Format(format)
	rec.Signal.Samples = []float64(samples)
	if err := rec.Signal.Validate(); err != nil {
		return models.Recording{}, models.NewFormatError("postgres:"+id, "invalid stored recording", err)
	}

	r.logger.Debug("Recording loaded from database",
		zap.String("recording_id", id),
		zap.Int("sample_count", len(rec.Signal.Samples)),
	)
	return rec, nil
}

// Save inserts or replaces a recording.
func (r *RecordingRepository) Save(ctx context.Context, rec models.Recording) error {
	if rec.ID == "" {
		return models.NewConfigurationError("recording id must not be empty")
	}

	query := `
		INSERT INTO ecg_recordings (id, name, format, fs, samples)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			format = EXCLUDED.format,
			fs = EXCLUDED.fs,
			samples = EXCLUDED.samples
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Name,
		string(rec.Format),
		rec.Signal.FS,
		pq.Array(rec.Signal.Samples),
	)
	if err != nil {
		return fmt.Errorf("failed to save recording: %w", err)
	}
	return nil
}

// List returns the most recent recordings, newest first.
func (r *RecordingRepository) List(ctx context.Context, limit int) ([]RecordingInfo, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, name, format, fs, COALESCE(array_length(samples, 1), 0), created_at
		FROM ecg_recordings
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	defer rows.Close()

	var out []RecordingInfo
	for rows.Next() {
		var (
			info   RecordingInfo
			format string
		)
		if err := rows.Scan(&info.ID, &info.Name, &format, &info.FS, &info.SampleCount, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recording: %w", err)
		}
		info.Format = models.Format(format)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recordings: %w", err)
	}
	return out, nil
}
