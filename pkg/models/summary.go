package models

import (
	"encoding/json"
	"time"
)

// BackupVersion is written into every backup document
const BackupVersion = "1.0"

// Summary holds the aggregate numbers shown on the profile page
type Summary struct {
	TotalProgress    int `json:"totalProgress"`
	CompletedModules int `json:"completedModules"`
	TotalBookmarks   int `json:"totalBookmarks"`
	TotalNotes       int `json:"totalNotes"`
}

// LearningDataExport is the document produced by the profile export
type LearningDataExport struct {
	Profile    UserProfile `json:"profile"`
	Progress   ProgressMap `json:"progress"`
	ExportDate time.Time   `json:"exportDate"`
	Summary    Summary     `json:"summary"`
}

// Backup is a raw copy of local storage. Profile and Progress hold the stored
// JSON verbatim and are null when the key is missing.
type Backup struct {
	Profile    json.RawMessage `json:"profile"`
	Progress   json.RawMessage `json:"progress"`
	ExportDate time.Time       `json:"exportDate"`
	Version    string          `json:"version"`
}
