package learning

import (
	"testing"
	"time"

	"github.com/example/geolearn/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
)

func TestPageProgress(t *testing.T) {
	assert.Equal(t, 0, PageProgress(0, 0))
	assert.Equal(t, 25, PageProgress(0, 4))
	assert.Equal(t, 50, PageProgress(1, 4))
	assert.Equal(t, 100, PageProgress(3, 4))
	assert.Equal(t, 100, PageProgress(0, 1))
	assert.Equal(t, 100, PageProgress(9, 4))
}

func TestReadingTrackerThrottles(t *testing.T) {
	c := newLocalContainer(storagetest.NewMemoryKV())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewReadingTracker(2 * time.Second)
	tracker.now = func() time.Time { return now }

	assert.True(t, tracker.Track(c, "guide", 20))
	assert.False(t, tracker.Track(c, "guide", 40))
	assert.False(t, tracker.Track(c, "guide", 60))
	assert.Equal(t, 1, tracker.Pending())

	e, _ := c.Entry("guide")
	assert.Equal(t, 20, e.Progress)

	// other items are throttled independently
	assert.True(t, tracker.Track(c, "case", 10))

	assert.Equal(t, 1, tracker.Flush())
	e, _ = c.Entry("guide")
	assert.Equal(t, 60, e.Progress)
	assert.Equal(t, 0, tracker.Pending())

	now = now.Add(3 * time.Second)
	assert.True(t, tracker.Track(c, "guide", 80))
}

func TestReadingTrackerCompletes(t *testing.T) {
	c := newLocalContainer(storagetest.NewMemoryKV())
	tracker := NewReadingTracker(0)

	tracker.Track(c, "guide", 94)
	e, _ := c.Entry("guide")
	assert.False(t, e.Completed)

	tracker.Track(c, "guide", CompletionThreshold)
	e, _ = c.Entry("guide")
	assert.True(t, e.Completed)
	assert.NotNil(t, e.CompletedAt)

	// paging back keeps the furthest position and the completion
	tracker.Track(c, "guide", 10)
	e, _ = c.Entry("guide")
	assert.True(t, e.Completed)
	assert.Equal(t, 95, e.Progress)
}
