package models

import "strings"

// Level is the informational tier a learner places themselves in
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelExpert       Level = "expert"
	LevelSpecialized  Level = "specialized"
)

// DefaultProfileName is used when nothing better is known about the learner
const DefaultProfileName = "Learner"

// Valid reports whether l is one of the known levels
func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelExpert, LevelSpecialized:
		return true
	}
	return false
}

// UserProfile represents a learner's profile as stored locally
type UserProfile struct {
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	Level         Level             `json:"level"`
	TotalProgress int               `json:"totalProgress"`
	Achievements  []string          `json:"achievements"`
	Bookmarks     []string          `json:"bookmarks"`
	Notes         map[string]string `json:"notes"`
}

// NewDefaultProfile returns the profile used when no stored record exists
func NewDefaultProfile() UserProfile {
	return UserProfile{
		Name:         DefaultProfileName,
		Level:        LevelBeginner,
		Achievements: []string{},
		Bookmarks:    []string{},
		Notes:        map[string]string{},
	}
}

// NameFromEmail derives a display name from the local part of an email
func NameFromEmail(email string) string {
	local, _, found := strings.Cut(strings.TrimSpace(email), "@")
	if !found || local == "" {
		return DefaultProfileName
	}
	return local
}

// Normalize fills nil collections and an empty level with defaults.
// Profiles decoded from older or hand-edited JSON may miss them.
func (p *UserProfile) Normalize() {
	if p.Level == "" {
		p.Level = LevelBeginner
	}
	if p.Achievements == nil {
		p.Achievements = []string{}
	}
	if p.Bookmarks == nil {
		p.Bookmarks = []string{}
	}
	if p.Notes == nil {
		p.Notes = map[string]string{}
	}
}

// Clone returns a deep copy of the profile
func (p UserProfile) Clone() UserProfile {
	c := p
	c.Achievements = append([]string{}, p.Achievements...)
	c.Bookmarks = append([]string{}, p.Bookmarks...)
	c.Notes = make(map[string]string, len(p.Notes))
	for k, v := range p.Notes {
		c.Notes[k] = v
	}
	return c
}

// HasBookmark reports whether id is bookmarked
func (p UserProfile) HasBookmark(id string) bool {
	for _, b := range p.Bookmarks {
		if b == id {
			return true
		}
	}
	return false
}

// NoteCount returns the number of notes with non-blank text
func (p UserProfile) NoteCount() int {
	count := 0
	for _, n := range p.Notes {
		if strings.TrimSpace(n) != "" {
			count++
		}
	}
	return count
}
