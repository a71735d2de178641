package storage

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/example/geolearn/pkg/models"
)

// RemoteBackend keeps learner state in the remote row store, keyed by user id
type RemoteBackend struct {
	store  RemoteStore
	userID string
	email  string

	mu sync.Mutex
	// saved is the last progress known to be in the store; SaveProgress only
	// writes entries that differ from it
	saved models.ProgressMap
}

// NewRemoteBackend creates a backend for one signed-in user
func NewRemoteBackend(store RemoteStore, userID, email string) *RemoteBackend {
	return &RemoteBackend{
		store:  store,
		userID: userID,
		email:  email,
		saved:  models.ProgressMap{},
	}
}

// Name implements Backend
func (b *RemoteBackend) Name() string {
	return "remote"
}

// Load implements Backend. A user without a profile row gets a default
// profile which is written to the store before returning.
func (b *RemoteBackend) Load(ctx context.Context) (Snapshot, error) {
	record, err := b.store.GetProfile(ctx, b.userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load remote profile: %w", err)
	}

	var profile models.UserProfile
	if record == nil {
		profile = models.NewDefaultProfile()
		profile.Name = models.NameFromEmail(b.email)
		profile.Email = b.email
		if err := b.store.UpsertProfile(ctx, models.ProfileRecordFrom(b.userID, profile)); err != nil {
			log.Printf("Error creating remote profile for user %s: %v", b.userID, err)
		}
	} else {
		profile = record.Profile()
	}

	records, err := b.store.ListProgress(ctx, b.userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load remote progress: %w", err)
	}

	progress := make(models.ProgressMap, len(records))
	for _, r := range records {
		progress[r.ItemID] = r.Entry()
	}

	b.mu.Lock()
	b.saved = progress.Clone()
	b.mu.Unlock()

	return Snapshot{Profile: profile, Progress: progress}, nil
}

// SaveProfile implements Backend
func (b *RemoteBackend) SaveProfile(ctx context.Context, profile models.UserProfile) error {
	if profile.Email == "" {
		profile.Email = b.email
	}
	return b.store.UpsertProfile(ctx, models.ProfileRecordFrom(b.userID, profile))
}

// SaveProgress implements Backend. Only entries that changed since the last
// successful save are upserted; the map never shrinks, so nothing is deleted.
func (b *RemoteBackend) SaveProgress(ctx context.Context, progress models.ProgressMap) error {
	b.mu.Lock()
	var changed []models.ProgressRecord
	for id, e := range progress {
		if prev, ok := b.saved[id]; ok && prev.Equal(e) {
			continue
		}
		changed = append(changed, models.ProgressRecordFrom(b.userID, id, e))
	}
	b.mu.Unlock()

	if len(changed) == 0 {
		return nil
	}
	if err := b.store.UpsertProgress(ctx, changed); err != nil {
		return err
	}

	b.mu.Lock()
	for _, r := range changed {
		b.saved[r.ItemID] = r.Entry()
	}
	b.mu.Unlock()
	return nil
}
