package models

import (
	"math"
	"time"
)

// ProgressEntry tracks a learner's progress with a single learning item
type ProgressEntry struct {
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Progress    int        `json:"progress"` // 0-100
}

// ProgressMap maps item id to its progress entry
type ProgressMap map[string]ProgressEntry

// ClampProgress forces p into [0,100]
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Equal reports whether two entries hold the same state
func (e ProgressEntry) Equal(o ProgressEntry) bool {
	if e.Completed != o.Completed || e.Progress != o.Progress {
		return false
	}
	if e.CompletedAt == nil || o.CompletedAt == nil {
		return e.CompletedAt == nil && o.CompletedAt == nil
	}
	return e.CompletedAt.Equal(*o.CompletedAt)
}

// Clone returns a copy of the map that shares no state with m
func (m ProgressMap) Clone() ProgressMap {
	c := make(ProgressMap, len(m))
	for k, v := range m {
		if v.CompletedAt != nil {
			t := *v.CompletedAt
			v.CompletedAt = &t
		}
		c[k] = v
	}
	return c
}

// CompletedCount returns the number of completed entries
func (m ProgressMap) CompletedCount() int {
	count := 0
	for _, e := range m {
		if e.Completed {
			count++
		}
	}
	return count
}

// InProgressCount returns entries that were started but not completed
func (m ProgressMap) InProgressCount() int {
	count := 0
	for _, e := range m {
		if e.Progress > 0 && !e.Completed {
			count++
		}
	}
	return count
}

// TotalProgress returns the rounded percentage of completed entries, 0 for an empty map
func (m ProgressMap) TotalProgress() int {
	if len(m) == 0 {
		return 0
	}
	return int(math.Round(float64(m.CompletedCount()) / float64(len(m)) * 100))
}
