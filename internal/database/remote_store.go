package database

import (
	"context"

	"github.com/example/geolearn/pkg/models"
	"github.com/jmoiron/sqlx"
)

// RemoteStore exposes the user_profiles and learning_progress collections
// as the row store consumed by the remote backend.
type RemoteStore struct {
	profiles *ProfileRepository
	progress *ProgressRepository
}

// NewRemoteStore creates a store over db. The schema must already exist.
func NewRemoteStore(db *sqlx.DB) *RemoteStore {
	return &RemoteStore{
		profiles: NewProfileRepository(db),
		progress: NewProgressRepository(db),
	}
}

func (s *RemoteStore) GetProfile(ctx context.Context, userID string) (*models.ProfileRecord, error) {
	return s.profiles.GetByUserID(ctx, userID)
}

func (s *RemoteStore) UpsertProfile(ctx context.Context, record models.ProfileRecord) error {
	return s.profiles.Upsert(ctx, record)
}

func (s *RemoteStore) ListProgress(ctx context.Context, userID string) ([]models.ProgressRecord, error) {
	return s.progress.ListByUser(ctx, userID)
}

func (s *RemoteStore) UpsertProgress(ctx context.Context, records []models.ProgressRecord) error {
	return s.progress.UpsertMany(ctx, records)
}

func (s *RemoteStore) ReplaceProgress(ctx context.Context, userID string, records []models.ProgressRecord) error {
	return s.progress.ReplaceAll(ctx, userID, records)
}
