package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/example/geolearn/internal/storage"
	"github.com/example/geolearn/pkg/models"
)

// JSONContentType is the MIME type of every export
const JSONContentType = "application/json"

// Download is a file ready to be handed to the learner
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
}

// BackupFilename returns the file name of a backup taken at now
func BackupFilename(now time.Time) string {
	return "geo-learning-backup-" + now.UTC().Format("2006-01-02") + ".json"
}

// BuildBackup copies local storage verbatim into a backup document.
// Missing or malformed keys are exported as null.
func BuildBackup(ctx context.Context, kv storage.KeyValueStore, now time.Time) (Download, error) {
	data, err := storage.ReadLocalData(ctx, kv)
	if err != nil {
		return Download{}, fmt.Errorf("failed to read local storage: %w", err)
	}

	backup := models.Backup{
		Profile:    rawJSON(storage.ProfileKey, data.Profile, data.HasProfile),
		Progress:   rawJSON(storage.ProgressKey, data.Progress, data.HasProgress),
		ExportDate: now.UTC(),
		Version:    models.BackupVersion,
	}

	body, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return Download{}, fmt.Errorf("failed to marshal backup: %w", err)
	}
	return Download{
		Filename:    BackupFilename(now),
		ContentType: JSONContentType,
		Body:        body,
	}, nil
}

func rawJSON(key, raw string, present bool) json.RawMessage {
	if !present {
		return nil
	}
	if !json.Valid([]byte(raw)) {
		log.Printf("Skipping malformed %s in backup", key)
		return nil
	}
	return json.RawMessage(raw)
}

// ExportLearningData returns the in-memory state with its summary
func (c *Container) ExportLearningData(now time.Time) (Download, error) {
	profile := c.Profile()
	progress := c.Progress()

	export := models.LearningDataExport{
		Profile:    profile,
		Progress:   progress,
		ExportDate: now.UTC(),
		Summary:    Summarize(profile, progress),
	}
	body, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return Download{}, fmt.Errorf("failed to marshal learning data: %w", err)
	}
	return Download{
		Filename:    "geo-learning-data-" + now.UTC().Format("2006-01-02") + ".json",
		ContentType: JSONContentType,
		Body:        body,
	}, nil
}

// LocalDataStatus reports which keys are present in local storage
func LocalDataStatus(ctx context.Context, kv storage.KeyValueStore) (hasProfile, hasProgress bool, err error) {
	data, err := storage.ReadLocalData(ctx, kv)
	if err != nil {
		return false, false, err
	}
	return data.HasProfile, data.HasProgress, nil
}
