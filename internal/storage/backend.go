// Package storage holds the two places learner state can live: the device's
// local key-value storage and the remote row store shared across devices.
package storage

import (
	"context"

	"github.com/example/geolearn/pkg/models"
)

// Local storage keys
const (
	ProfileKey  = "geo-learning-profile"
	ProgressKey = "geo-learning-progress"
)

// Snapshot is the full learner state held by a backend
type Snapshot struct {
	Profile  models.UserProfile
	Progress models.ProgressMap
}

// Backend is the source of truth for one identity
type Backend interface {
	// Name is used in log lines
	Name() string
	// Load returns the stored state, synthesizing defaults for missing records
	Load(ctx context.Context) (Snapshot, error)
	SaveProfile(ctx context.Context, profile models.UserProfile) error
	SaveProgress(ctx context.Context, progress models.ProgressMap) error
}

// KeyValueStore is a device-local persistent string store
type KeyValueStore interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// RemoteStore is the row store behind the remote backend
type RemoteStore interface {
	GetProfile(ctx context.Context, userID string) (*models.ProfileRecord, error)
	UpsertProfile(ctx context.Context, record models.ProfileRecord) error
	ListProgress(ctx context.Context, userID string) ([]models.ProgressRecord, error)
	UpsertProgress(ctx context.Context, records []models.ProgressRecord) error
	ReplaceProgress(ctx context.Context, userID string, records []models.ProgressRecord) error
}
