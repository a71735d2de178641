package learning

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/geolearn/internal/session"
	"github.com/example/geolearn/internal/storage"
	"github.com/example/geolearn/internal/storage/storagetest"
	"github.com/example/geolearn/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUser = &session.User{ID: "user-1", Email: "ana@example.com"}

func newLocalContainer(kv storage.KeyValueStore) *Container {
	c := NewContainer("chat-1", storage.NewLocalBackend(kv), nil)
	c.SetIdentity(nil)
	return c
}

func newRemoteContainer(kv storage.KeyValueStore, remote *storagetest.MemoryRemote) *Container {
	return NewContainer("chat-1", storage.NewLocalBackend(kv), func(u *session.User) storage.Backend {
		return storage.NewRemoteBackend(remote, u.ID, u.Email)
	})
}

// blockingBackend holds Load until release is closed
type blockingBackend struct {
	release chan struct{}
	profile models.UserProfile
}

func (b *blockingBackend) Name() string { return "blocking" }

func (b *blockingBackend) Load(ctx context.Context) (storage.Snapshot, error) {
	<-b.release
	return storage.Snapshot{Profile: b.profile.Clone(), Progress: models.ProgressMap{}}, nil
}

func (b *blockingBackend) SaveProfile(context.Context, models.UserProfile) error   { return nil }
func (b *blockingBackend) SaveProgress(context.Context, models.ProgressMap) error { return nil }

func TestUpdateProgressClampsAndStampsCompletion(t *testing.T) {
	c := newLocalContainer(storagetest.NewMemoryKV())
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return first }

	c.UpdateProgress("a", 150, true)
	e, ok := c.Entry("a")
	require.True(t, ok)
	assert.Equal(t, 100, e.Progress)
	require.NotNil(t, e.CompletedAt)
	assert.True(t, first.Equal(*e.CompletedAt))

	c.now = func() time.Time { return first.Add(time.Hour) }
	c.UpdateProgress("a", -5, false)
	e, _ = c.Entry("a")
	assert.Equal(t, 0, e.Progress)
	assert.False(t, e.Completed)
	require.NotNil(t, e.CompletedAt)
	assert.True(t, first.Equal(*e.CompletedAt))

	c.UpdateProgress("a", 100, true)
	e, _ = c.Entry("a")
	assert.True(t, first.Equal(*e.CompletedAt))
}

func TestUpdateProgressWithoutCompletionLeavesCompletedAtUnset(t *testing.T) {
	c := newLocalContainer(storagetest.NewMemoryKV())

	c.UpdateProgress("a", 40, false)
	e, _ := c.Entry("a")
	assert.Equal(t, 40, e.Progress)
	assert.Nil(t, e.CompletedAt)
}

func TestTotalProgress(t *testing.T) {
	c := newLocalContainer(storagetest.NewMemoryKV())
	assert.Equal(t, 0, c.Profile().TotalProgress)

	c.UpdateProgress("a", 100, true)
	c.UpdateProgress("b", 100, true)
	c.UpdateProgress("c", 30, false)
	assert.Equal(t, 67, c.Profile().TotalProgress)

	c.ToggleCompletion("a")
	assert.Equal(t, 33, c.Profile().TotalProgress)
}

func TestToggleCompletion(t *testing.T) {
	c := newLocalContainer(storagetest.NewMemoryKV())

	assert.True(t, c.ToggleCompletion("m"))
	e, _ := c.Entry("m")
	assert.Equal(t, 100, e.Progress)
	assert.True(t, e.Completed)

	assert.False(t, c.ToggleCompletion("m"))
	e, _ = c.Entry("m")
	assert.Equal(t, 0, e.Progress)
	assert.False(t, e.Completed)
}

func TestBookmarks(t *testing.T) {
	c := newLocalContainer(storagetest.NewMemoryKV())

	c.AddBookmark("a")
	c.AddBookmark("b")
	c.AddBookmark("a")
	assert.Equal(t, []string{"b", "a"}, c.Profile().Bookmarks)

	c.RemoveBookmark("missing")
	assert.Equal(t, []string{"b", "a"}, c.Profile().Bookmarks)

	c.RemoveBookmark("a")
	assert.Equal(t, []string{"b"}, c.Profile().Bookmarks)
}

func TestLocalStatePersists(t *testing.T) {
	kv := storagetest.NewMemoryKV()
	c := newLocalContainer(kv)
	c.AddNote("x", "hello")
	c.AddNote("y", "")
	c.UpdateProgress("m1", 100, true)

	reloaded := newLocalContainer(kv)
	p := reloaded.Profile()
	assert.Equal(t, "hello", p.Notes["x"])
	assert.Contains(t, p.Notes, "y")
	assert.Equal(t, 100, p.TotalProgress)
	e, ok := reloaded.Entry("m1")
	require.True(t, ok)
	assert.True(t, e.Completed)
}

func TestUpdateProfile(t *testing.T) {
	kv := storagetest.NewMemoryKV()
	c := newLocalContainer(kv)

	name := "Ana"
	level := models.LevelExpert
	require.NoError(t, c.UpdateProfile(ProfileUpdate{Name: &name, Level: &level}))
	p := c.Profile()
	assert.Equal(t, "Ana", p.Name)
	assert.Equal(t, models.LevelExpert, p.Level)
	assert.Empty(t, p.Email)

	bad := "not-an-email"
	assert.Error(t, c.UpdateProfile(ProfileUpdate{Email: &bad}))
	guru := models.Level("guru")
	assert.Error(t, c.UpdateProfile(ProfileUpdate{Level: &guru}))
	empty := ""
	assert.Error(t, c.UpdateProfile(ProfileUpdate{Name: &empty}))
	assert.Equal(t, "Ana", c.Profile().Name)

	bookmarks := []string{"a", "b", "a"}
	require.NoError(t, c.UpdateProfile(ProfileUpdate{Bookmarks: &bookmarks}))
	assert.Equal(t, []string{"b", "a"}, c.Profile().Bookmarks)

	assert.Equal(t, "Ana", newLocalContainer(kv).Profile().Name)
}

func TestRemoteProfileSynthesizedOnce(t *testing.T) {
	remote := storagetest.NewMemoryRemote()
	c := newRemoteContainer(storagetest.NewMemoryKV(), remote)

	c.SetIdentity(testUser)
	c.Wait()
	assert.False(t, c.IsLoading())
	assert.Equal(t, "remote", c.BackendName())
	assert.Equal(t, "ana", c.Profile().Name)
	assert.Equal(t, "ana@example.com", c.Profile().Email)

	c.SetIdentity(testUser)
	c.Wait()
	profileUpserts, _, _, _ := remote.Counts()
	assert.Equal(t, 1, profileUpserts)

	record, ok := remote.Profile(testUser.ID)
	require.True(t, ok)
	assert.Equal(t, "ana", record.DisplayName)
}

func TestRemoteWriteThrough(t *testing.T) {
	remote := storagetest.NewMemoryRemote()
	kv := storagetest.NewMemoryKV()
	c := newRemoteContainer(kv, remote)
	c.SetIdentity(testUser)
	c.Wait()

	c.UpdateProgress("m1", 100, true)
	c.Wait()
	c.AddBookmark("m2")
	c.Wait()

	rows := remote.Rows(testUser.ID)
	require.Contains(t, rows, "m1")
	assert.True(t, rows["m1"].Completed)

	record, ok := remote.Profile(testUser.ID)
	require.True(t, ok)
	assert.Equal(t, 100, record.TotalProgress)
	assert.Contains(t, []string(record.Bookmarks), "m2")

	_, hasProgress, err := LocalDataStatus(context.Background(), kv)
	require.NoError(t, err)
	assert.False(t, hasProgress, "remote users must not write local storage")
}

func TestIdenticalUpdateDoesNotWrite(t *testing.T) {
	remote := storagetest.NewMemoryRemote()
	c := newRemoteContainer(storagetest.NewMemoryKV(), remote)
	c.SetIdentity(testUser)
	c.Wait()

	c.UpdateProgress("m1", 50, false)
	c.Wait()
	profileBefore, progressBefore, _, _ := remote.Counts()

	c.UpdateProgress("m1", 50, false)
	c.Wait()
	profileAfter, progressAfter, _, _ := remote.Counts()
	assert.Equal(t, profileBefore, profileAfter)
	assert.Equal(t, progressBefore, progressAfter)
}

func TestRemoteFailureFallsBackToLocal(t *testing.T) {
	kv := storagetest.NewMemoryKV()
	local := newLocalContainer(kv)
	local.AddNote("x", "offline note")

	remote := storagetest.NewMemoryRemote()
	remote.SetFail(true)
	c := newRemoteContainer(kv, remote)
	c.SetIdentity(testUser)
	c.Wait()

	assert.False(t, c.IsLoading())
	assert.Equal(t, "offline note", c.Profile().Notes["x"])
}

func TestIsLoadingDuringRemoteLoad(t *testing.T) {
	backend := &blockingBackend{release: make(chan struct{}), profile: models.NewDefaultProfile()}
	c := NewContainer("chat-1", storage.NewLocalBackend(storagetest.NewMemoryKV()), func(*session.User) storage.Backend {
		return backend
	})

	c.SetIdentity(testUser)
	assert.True(t, c.IsLoading())

	close(backend.release)
	c.Wait()
	assert.False(t, c.IsLoading())
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	remoteProfile := models.NewDefaultProfile()
	remoteProfile.Name = "from remote"
	backend := &blockingBackend{release: make(chan struct{}), profile: remoteProfile}
	c := NewContainer("chat-1", storage.NewLocalBackend(storagetest.NewMemoryKV()), func(*session.User) storage.Backend {
		return backend
	})

	c.SetIdentity(testUser)
	c.SetIdentity(nil)
	close(backend.release)
	c.Wait()

	assert.Equal(t, models.DefaultProfileName, c.Profile().Name)
	assert.Equal(t, "local", c.BackendName())
	assert.False(t, c.IsLoading())
}

func TestDemoModeStaysLocal(t *testing.T) {
	c := NewContainer("chat-1", storage.NewLocalBackend(storagetest.NewMemoryKV()), nil)
	c.SetIdentity(testUser)

	assert.Equal(t, "local", c.BackendName())
	assert.False(t, c.IsLoading())
	assert.Equal(t, testUser, c.User())
}

func TestSyncDataReloadsRemote(t *testing.T) {
	remote := storagetest.NewMemoryRemote()
	c := newRemoteContainer(storagetest.NewMemoryKV(), remote)
	c.SetIdentity(testUser)
	c.Wait()

	require.NoError(t, remote.UpsertProgress(context.Background(), []models.ProgressRecord{
		{UserID: testUser.ID, ItemID: "elsewhere", Completed: true, Progress: 100},
	}))
	c.SyncData(context.Background())

	e, ok := c.Entry("elsewhere")
	require.True(t, ok)
	assert.True(t, e.Completed)
	assert.Equal(t, 100, c.Profile().TotalProgress)
}

func TestUnfinishedBookmarks(t *testing.T) {
	c := newLocalContainer(storagetest.NewMemoryKV())
	c.AddBookmark("a")
	c.AddBookmark("b")
	c.AddBookmark("c")
	c.UpdateProgress("b", 100, true)

	assert.Equal(t, []string{"a", "c"}, c.UnfinishedBookmarks())
}

func TestFromContext(t *testing.T) {
	c := newLocalContainer(storagetest.NewMemoryKV())
	assert.Same(t, c, FromContext(NewContext(context.Background(), c)))
	assert.Panics(t, func() { FromContext(context.Background()) })
}

func TestMutationDuringSignInWaitsForRemoteLoad(t *testing.T) {
	kv := storagetest.NewMemoryKV()
	local := newLocalContainer(kv)
	name := "LocalName"
	require.NoError(t, local.UpdateProfile(ProfileUpdate{Name: &name}))
	local.AddNote("secret", "local-only note")

	remote := storagetest.NewMemoryRemote()
	c := newRemoteContainer(kv, remote)
	c.SetIdentity(nil)

	release := remote.Hold()
	c.SetIdentity(testUser)
	require.True(t, c.IsLoading())

	done := make(chan struct{})
	go func() {
		c.AddBookmark("x")
		close(done)
	}()
	release()
	<-done
	c.Wait()

	record, ok := remote.Profile(testUser.ID)
	require.True(t, ok)
	assert.Equal(t, "ana", record.DisplayName)
	assert.NotContains(t, record.Notes, "secret")
	assert.Equal(t, []string{"x"}, []string(record.Bookmarks))

	profileUpserts, _, _, _ := remote.Counts()
	assert.Equal(t, 2, profileUpserts, "one default profile, one bookmark save")
}

func TestMutationAfterRestartKeepsRemoteProfile(t *testing.T) {
	ctx := context.Background()
	remote := storagetest.NewMemoryRemote()
	stored := models.NewDefaultProfile()
	stored.Name = "Ana"
	stored.Bookmarks = []string{"old1", "old2"}
	stored.Notes = map[string]string{"old1": "read again"}
	require.NoError(t, remote.UpsertProfile(ctx, models.ProfileRecordFrom(testUser.ID, stored)))

	c := newRemoteContainer(storagetest.NewMemoryKV(), remote)
	c.SetIdentity(testUser)
	c.AddBookmark("new")
	c.Wait()

	record, ok := remote.Profile(testUser.ID)
	require.True(t, ok)
	assert.Equal(t, "Ana", record.DisplayName)
	assert.Equal(t, []string{"old1", "old2", "new"}, []string(record.Bookmarks))
	assert.Equal(t, "read again", record.Notes["old1"])
}

func TestWaitLoaded(t *testing.T) {
	backend := &blockingBackend{release: make(chan struct{}), profile: models.NewDefaultProfile()}
	backend.profile.Bookmarks = []string{"b"}
	c := NewContainer("chat-1", storage.NewLocalBackend(storagetest.NewMemoryKV()), func(*session.User) storage.Backend {
		return backend
	})
	c.SetIdentity(testUser)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.WaitLoaded(ctx), context.DeadlineExceeded)

	close(backend.release)
	require.NoError(t, c.WaitLoaded(context.Background()))
	assert.Equal(t, []string{"b"}, c.UnfinishedBookmarks())
}

func TestConcurrentTogglesStayConsistent(t *testing.T) {
	c := newLocalContainer(storagetest.NewMemoryKV())

	const toggles = 50
	var wg sync.WaitGroup
	var completions atomic.Int32
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.ToggleCompletion("m") {
				completions.Add(1)
			}
		}()
	}
	wg.Wait()

	// every toggle observed the previous one, so they alternate
	assert.Equal(t, int32(toggles/2), completions.Load())
	e, _ := c.Entry("m")
	assert.False(t, e.Completed)
}
