package database

import (
	"context"
	"fmt"

	"github.com/example/geolearn/pkg/models"
	"github.com/jmoiron/sqlx"
)

const insertProgressQuery = `
	INSERT INTO learning_progress (
		user_id, item_id, completed, completed_at, progress, updated_at
	) VALUES (
		:user_id, :item_id, :completed, :completed_at, :progress, :updated_at
	)
`

// ProgressRepository handles database operations for the learning_progress collection
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository creates a new repository instance
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// ListByUser returns all progress rows of a user
func (r *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]models.ProgressRecord, error) {
	var records []models.ProgressRecord
	query := r.db.Rebind(`
		SELECT user_id, item_id, completed, completed_at, progress, updated_at
		FROM learning_progress
		WHERE user_id = ?
		ORDER BY item_id ASC
	`)
	if err := r.db.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return records, nil
}

// UpsertMany creates or updates each record by (user_id, item_id) in one transaction
func (r *ProgressRepository) UpsertMany(ctx context.Context, records []models.ProgressRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := insertProgressQuery + `
		ON CONFLICT (user_id, item_id) DO UPDATE SET
			completed = excluded.completed,
			completed_at = excluded.completed_at,
			progress = excluded.progress,
			updated_at = excluded.updated_at
	`
	for _, record := range records {
		if _, err := tx.NamedExecContext(ctx, query, record); err != nil {
			return fmt.Errorf("failed to upsert progress for %q: %w", record.ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit progress: %w", err)
	}
	return nil
}

// ReplaceAll deletes every row of the user and inserts records, atomically
func (r *ProgressRepository) ReplaceAll(ctx context.Context, userID string, records []models.ProgressRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM learning_progress WHERE user_id = ?"), userID); err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	if len(records) > 0 {
		if _, err := tx.NamedExecContext(ctx, insertProgressQuery, records); err != nil {
			return fmt.Errorf("failed to insert progress: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit progress: %w", err)
	}
	return nil
}
