package learning

import (
	"sync"
	"time"

	"github.com/example/geolearn/pkg/models"
)

// CompletionThreshold is the reading position at which an item counts as completed
const CompletionThreshold = 95

// PageProgress converts a zero-based page index into a reading percentage
func PageProgress(page, pages int) int {
	if pages <= 0 {
		return 0
	}
	if page >= pages-1 {
		return 100
	}
	if page < 0 {
		page = 0
	}
	return models.ClampProgress((page + 1) * 100 / pages)
}

type readingKey struct {
	device string
	item   string
}

type pendingRead struct {
	container *Container
	percent   int
}

// ReadingTracker turns reader navigation into progress updates. At most one
// update per device and item is applied per interval; the rest are coalesced
// and the latest value is applied by Flush.
type ReadingTracker struct {
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	applied map[readingKey]time.Time
	pending map[readingKey]pendingRead
}

// NewReadingTracker creates a tracker applying at most one update per interval
func NewReadingTracker(interval time.Duration) *ReadingTracker {
	return &ReadingTracker{
		interval: interval,
		now:      time.Now,
		applied:  make(map[readingKey]time.Time),
		pending:  make(map[readingKey]pendingRead),
	}
}

// Track records that the reader of c is at percent of itemID. It reports
// whether the update was applied right away.
func (t *ReadingTracker) Track(c *Container, itemID string, percent int) bool {
	key := readingKey{device: c.Device(), item: itemID}
	now := t.now()

	t.mu.Lock()
	last, seen := t.applied[key]
	if seen && now.Sub(last) < t.interval {
		t.pending[key] = pendingRead{container: c, percent: percent}
		t.mu.Unlock()
		return false
	}
	t.applied[key] = now
	delete(t.pending, key)
	t.mu.Unlock()

	c.advanceReading(itemID, percent)
	return true
}

// Flush applies every coalesced update and returns how many were applied
func (t *ReadingTracker) Flush() int {
	now := t.now()

	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[readingKey]pendingRead)
	for key := range pending {
		t.applied[key] = now
	}
	t.mu.Unlock()

	for key, p := range pending {
		p.container.advanceReading(key.item, p.percent)
	}
	return len(pending)
}

// Pending returns the number of coalesced updates waiting for Flush
func (t *ReadingTracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
