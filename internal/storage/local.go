package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/example/geolearn/pkg/models"
)

// LocalData holds the raw local blobs as they are stored
type LocalData struct {
	Profile     string
	Progress    string
	HasProfile  bool
	HasProgress bool
}

// HasAny reports whether either key is present
func (d LocalData) HasAny() bool {
	return d.HasProfile || d.HasProgress
}

// ReadLocalData reads both keys without decoding them
func ReadLocalData(ctx context.Context, kv KeyValueStore) (LocalData, error) {
	var data LocalData
	var err error

	data.Profile, data.HasProfile, err = kv.GetItem(ctx, ProfileKey)
	if err != nil {
		return LocalData{}, err
	}
	data.Progress, data.HasProgress, err = kv.GetItem(ctx, ProgressKey)
	if err != nil {
		return LocalData{}, err
	}
	return data, nil
}

// LocalBackend keeps learner state in device-local storage
type LocalBackend struct {
	kv KeyValueStore
}

// NewLocalBackend creates a backend over kv
func NewLocalBackend(kv KeyValueStore) *LocalBackend {
	return &LocalBackend{kv: kv}
}

// Name implements Backend
func (b *LocalBackend) Name() string {
	return "local"
}

// Load implements Backend. Missing or malformed keys are replaced by defaults;
// only a failing store returns an error.
func (b *LocalBackend) Load(ctx context.Context) (Snapshot, error) {
	data, err := ReadLocalData(ctx, b.kv)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read local storage: %w", err)
	}

	snap := Snapshot{
		Profile:  models.NewDefaultProfile(),
		Progress: models.ProgressMap{},
	}

	if data.HasProfile {
		profile, err := DecodeProfile(data.Profile)
		if err != nil {
			log.Printf("Ignoring malformed local profile: %v", err)
		} else {
			snap.Profile = profile
		}
	}

	if data.HasProgress {
		progress, err := DecodeProgress(data.Progress)
		if err != nil {
			log.Printf("Ignoring malformed local progress: %v", err)
		} else {
			snap.Progress = progress
		}
	}

	return snap, nil
}

// SaveProfile implements Backend
func (b *LocalBackend) SaveProfile(ctx context.Context, profile models.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	return b.kv.SetItem(ctx, ProfileKey, string(data))
}

// SaveProgress implements Backend
func (b *LocalBackend) SaveProgress(ctx context.Context, progress models.ProgressMap) error {
	if progress == nil {
		progress = models.ProgressMap{}
	}
	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	return b.kv.SetItem(ctx, ProgressKey, string(data))
}

// DecodeProfile parses a stored profile blob
func DecodeProfile(raw string) (models.UserProfile, error) {
	var profile models.UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return models.UserProfile{}, fmt.Errorf("failed to parse profile: %w", err)
	}
	profile.Normalize()
	return profile, nil
}

// DecodeProgress parses a stored progress blob
func DecodeProgress(raw string) (models.ProgressMap, error) {
	var progress models.ProgressMap
	if err := json.Unmarshal([]byte(raw), &progress); err != nil {
		return nil, fmt.Errorf("failed to parse progress: %w", err)
	}
	if progress == nil {
		progress = models.ProgressMap{}
	}
	for id, e := range progress {
		e.Progress = models.ClampProgress(e.Progress)
		progress[id] = e
	}
	return progress, nil
}
