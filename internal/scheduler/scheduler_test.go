package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/geolearn/internal/learning"
	"github.com/example/geolearn/internal/session"
	"github.com/example/geolearn/internal/storage"
	"github.com/example/geolearn/internal/storage/storagetest"
	"github.com/example/geolearn/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu        sync.Mutex
	reminders map[string][]string
}

func (n *fakeNotifier) SendReminder(device string, itemIDs []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.reminders == nil {
		n.reminders = make(map[string][]string)
	}
	n.reminders[device] = itemIDs
	return nil
}

func newRegistry() *learning.Registry {
	return newRemoteRegistry(nil, memoryStores())
}

func memoryStores() func(device string) storage.KeyValueStore {
	var mu sync.Mutex
	stores := make(map[string]*storagetest.MemoryKV)
	storeFor := func(device string) storage.KeyValueStore {
		mu.Lock()
		defer mu.Unlock()
		if _, ok := stores[device]; !ok {
			stores[device] = storagetest.NewMemoryKV()
		}
		return stores[device]
	}
	return storeFor
}

func newRemoteRegistry(remote storage.RemoteStore, storeFor func(device string) storage.KeyValueStore) *learning.Registry {
	return learning.NewRegistry(storeFor, remote, session.NewProvider(storeFor))
}

func TestRunReminders(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry()

	reader, err := registry.Container(ctx, "chat-1")
	require.NoError(t, err)
	reader.AddBookmark("a")
	reader.AddBookmark("b")
	reader.UpdateProgress("a", 100, true)

	done, err := registry.Container(ctx, "chat-2")
	require.NoError(t, err)
	done.AddBookmark("a")
	done.UpdateProgress("a", 100, true)

	notifier := &fakeNotifier{}
	s := New(registry, learning.NewReadingTracker(time.Second), notifier, time.Second, "")

	sent, err := s.RunReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, map[string][]string{"chat-1": {"b"}}, notifier.reminders)
}

func TestStartSchedulesJobs(t *testing.T) {
	s := New(newRegistry(), learning.NewReadingTracker(time.Second), &fakeNotifier{}, time.Second, "07:30")
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Equal(t, 2, s.Jobs())
}

func TestStopFlushesPendingReading(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry()
	c, err := registry.Container(ctx, "chat-1")
	require.NoError(t, err)

	tracker := learning.NewReadingTracker(time.Hour)
	tracker.Track(c, "guide", 20)
	tracker.Track(c, "guide", 60)
	require.Equal(t, 1, tracker.Pending())

	New(registry, tracker, &fakeNotifier{}, time.Hour, "").Stop()

	assert.Equal(t, 0, tracker.Pending())
	e, _ := c.Entry("guide")
	assert.Equal(t, 60, e.Progress)
}

func TestRunRemindersWaitsForRemoteLoad(t *testing.T) {
	ctx := context.Background()
	stores := memoryStores()
	user, err := session.NewProvider(stores).SignIn(ctx, "chat-1", "ana@example.com")
	require.NoError(t, err)

	remote := storagetest.NewMemoryRemote()
	profile := models.NewDefaultProfile()
	profile.Bookmarks = []string{"b"}
	require.NoError(t, remote.UpsertProfile(ctx, models.ProfileRecordFrom(user.ID, profile)))

	registry := newRemoteRegistry(remote, stores)
	registry.KnownDevices = func(context.Context) ([]string, error) { return []string{"chat-1"}, nil }

	release := remote.Hold()
	time.AfterFunc(20*time.Millisecond, release)

	notifier := &fakeNotifier{}
	sent, err := New(registry, learning.NewReadingTracker(time.Second), notifier, time.Second, "").RunReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, map[string][]string{"chat-1": {"b"}}, notifier.reminders)
	registry.Wait()
}
