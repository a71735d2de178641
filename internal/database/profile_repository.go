package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/geolearn/pkg/models"
	"github.com/jmoiron/sqlx"
)

// ProfileRepository handles database operations for the user_profiles collection
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new repository instance
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUserID returns the profile row of a user, or nil when the user has none
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.ProfileRecord, error) {
	var record models.ProfileRecord
	query := r.db.Rebind(`
		SELECT user_id, email, display_name, avatar_url, level, total_progress,
			achievements, bookmarks, notes, updated_at
		FROM user_profiles
		WHERE user_id = ?
	`)
	err := r.db.GetContext(ctx, &record, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &record, nil
}

// Upsert creates the profile row or replaces all of its fields
func (r *ProfileRepository) Upsert(ctx context.Context, record models.ProfileRecord) error {
	query := `
		INSERT INTO user_profiles (
			user_id, email, display_name, avatar_url, level, total_progress,
			achievements, bookmarks, notes, updated_at
		) VALUES (
			:user_id, :email, :display_name, :avatar_url, :level, :total_progress,
			:achievements, :bookmarks, :notes, :updated_at
		)
		ON CONFLICT (user_id) DO UPDATE SET
			email = excluded.email,
			display_name = excluded.display_name,
			avatar_url = excluded.avatar_url,
			level = excluded.level,
			total_progress = excluded.total_progress,
			achievements = excluded.achievements,
			bookmarks = excluded.bookmarks,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}
