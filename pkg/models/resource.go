package models

import (
	"strings"
	"time"
)

// Resource represents one curated article in the catalog
type Resource struct {
	ID          string    `json:"id" db:"id"` // <category>_<file without .md>
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	File        string    `json:"file" db:"file"`
	Difficulty  Level     `json:"difficulty" db:"difficulty"`
	Duration    string    `json:"duration" db:"duration"`
	Tags        string    `json:"tags" db:"tags"` // comma separated
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ResourceID builds the item id used by the progress map and bookmarks
func ResourceID(category, file string) string {
	return category + "_" + strings.TrimSuffix(file, ".md")
}

// TagList splits the comma separated tags
func (r Resource) TagList() []string {
	var tags []string
	for _, t := range strings.Split(r.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
