package learning

import "github.com/example/geolearn/pkg/models"

// Achievement is a milestone computed from the learner's state
type Achievement struct {
	ID          string
	Title       string
	Description string
	unlocked    func(models.UserProfile, models.ProgressMap) bool
}

// Achievements lists every achievement in display order
var Achievements = []Achievement{
	{
		ID: "first-step", Title: "First Step", Description: "Complete your first module",
		unlocked: func(_ models.UserProfile, m models.ProgressMap) bool { return m.CompletedCount() >= 1 },
	},
	{
		ID: "knowledge-seeker", Title: "Knowledge Seeker", Description: "Finish the beginner path",
		unlocked: func(p models.UserProfile, _ models.ProgressMap) bool { return p.TotalProgress >= 25 },
	},
	{
		ID: "practitioner", Title: "Practitioner", Description: "Complete 5 modules",
		unlocked: func(_ models.UserProfile, m models.ProgressMap) bool { return m.CompletedCount() >= 5 },
	},
	{
		ID: "bookworm", Title: "Bookworm", Description: "Bookmark 10 resources",
		unlocked: func(p models.UserProfile, _ models.ProgressMap) bool { return len(p.Bookmarks) >= 10 },
	},
	{
		ID: "note-taker", Title: "Note Taker", Description: "Write notes on 5 resources",
		unlocked: func(p models.UserProfile, _ models.ProgressMap) bool { return p.NoteCount() >= 5 },
	},
}

// Unlocked reports whether the learner has earned a
func (a Achievement) Unlocked(p models.UserProfile, m models.ProgressMap) bool {
	return a.unlocked(p, m)
}

// levelThresholds maps totalProgress onto a display tier
var levelThresholds = []struct {
	level    models.Level
	min, max int
}{
	{models.LevelBeginner, 0, 25},
	{models.LevelIntermediate, 26, 65},
	{models.LevelExpert, 66, 90},
	{models.LevelSpecialized, 91, 100},
}

// LevelFor returns the tier earned by a total progress percentage
func LevelFor(totalProgress int) models.Level {
	for _, t := range levelThresholds {
		if totalProgress >= t.min && totalProgress <= t.max {
			return t.level
		}
	}
	return models.LevelBeginner
}

// Summarize computes the numbers shown on the profile page
func Summarize(p models.UserProfile, m models.ProgressMap) models.Summary {
	return models.Summary{
		TotalProgress:    p.TotalProgress,
		CompletedModules: m.CompletedCount(),
		TotalBookmarks:   len(p.Bookmarks),
		TotalNotes:       p.NoteCount(),
	}
}
