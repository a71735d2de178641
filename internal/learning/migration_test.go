package learning

import (
	"context"
	"testing"
	"time"

	"github.com/example/geolearn/internal/storage"
	"github.com/example/geolearn/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLocal(t *testing.T, kv storage.KeyValueStore) {
	t.Helper()
	c := newLocalContainer(kv)
	name := "Offline Ana"
	require.NoError(t, c.UpdateProfile(ProfileUpdate{Name: &name}))
	c.UpdateProgress("m1", 100, true)
	c.UpdateProgress("m2", 40, false)
	c.AddNote("m2", "halfway")
}

func TestMigrateCopiesLocalData(t *testing.T) {
	ctx := context.Background()
	kv := storagetest.NewMemoryKV()
	seedLocal(t, kv)

	remote := storagetest.NewMemoryRemote()
	c := newRemoteContainer(kv, remote)
	c.SetIdentity(testUser)
	c.Wait()

	m := NewMigrator(kv, remote, c)
	var progress []int
	m.OnStatus = func(s MigrationStatus) { progress = append(progress, s.Progress) }

	require.NoError(t, m.Migrate(ctx))
	assert.Equal(t, []int{0, 10, 30, 60, 100}, progress)
	assert.Equal(t, MigrationSuccess, m.Status().State)

	rows := remote.Rows(testUser.ID)
	assert.Len(t, rows, 2)
	assert.True(t, rows["m1"].Completed)
	assert.Equal(t, 40, rows["m2"].Progress)

	record, ok := remote.Profile(testUser.ID)
	require.True(t, ok)
	assert.Equal(t, "Offline Ana", record.DisplayName)
	assert.Equal(t, testUser.Email, record.Email)

	// the container was resynced from the remote store
	assert.Equal(t, "Offline Ana", c.Profile().Name)
	assert.Equal(t, "halfway", c.Profile().Notes["m2"])
	assert.Equal(t, 50, c.Profile().TotalProgress)

	// local data is kept
	hasProfile, hasProgress, err := LocalDataStatus(ctx, kv)
	require.NoError(t, err)
	assert.True(t, hasProfile)
	assert.True(t, hasProgress)

	_, _, replaces, _ := remote.Counts()
	assert.Equal(t, 1, replaces)
}

func TestMigrateRequiresSignIn(t *testing.T) {
	kv := storagetest.NewMemoryKV()
	seedLocal(t, kv)
	c := newLocalContainer(kv)

	m := NewMigrator(kv, storagetest.NewMemoryRemote(), c)
	err := m.Migrate(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
	assert.Equal(t, MigrationStatus{State: MigrationError, Message: "Please sign in first", Progress: 0}, m.Status())
}

func TestMigrateWithoutRemote(t *testing.T) {
	kv := storagetest.NewMemoryKV()
	seedLocal(t, kv)
	c := NewContainer("chat-1", storage.NewLocalBackend(kv), nil)
	c.SetIdentity(testUser)

	err := NewMigrator(kv, nil, c).Migrate(context.Background())
	assert.ErrorIs(t, err, ErrRemoteDisabled)
}

func TestMigrateWithoutLocalData(t *testing.T) {
	kv := storagetest.NewMemoryKV()
	remote := storagetest.NewMemoryRemote()
	c := newRemoteContainer(kv, remote)
	c.SetIdentity(testUser)
	c.Wait()

	m := NewMigrator(kv, remote, c)
	assert.ErrorIs(t, m.Migrate(context.Background()), ErrNoLocalData)
	assert.Equal(t, "No local data found", m.Status().Message)
}

func TestMigrateRemoteFailure(t *testing.T) {
	kv := storagetest.NewMemoryKV()
	seedLocal(t, kv)
	remote := storagetest.NewMemoryRemote()
	c := newRemoteContainer(kv, remote)
	c.SetIdentity(testUser)
	c.Wait()

	remote.SetFail(true)
	m := NewMigrator(kv, remote, c)
	err := m.Migrate(context.Background())
	assert.ErrorIs(t, err, storagetest.ErrUnavailable)
	assert.Equal(t, MigrationError, m.Status().State)
	assert.Equal(t, 0, m.Status().Progress)

	// a failed migration can be retried
	remote.SetFail(false)
	require.NoError(t, m.Migrate(context.Background()))
	assert.Len(t, remote.Rows(testUser.ID), 2)
}

func TestMigrateRejectsConcurrentRun(t *testing.T) {
	kv := storagetest.NewMemoryKV()
	seedLocal(t, kv)
	remote := storagetest.NewMemoryRemote()
	c := newRemoteContainer(kv, remote)
	c.SetIdentity(testUser)
	c.Wait()

	m := NewMigrator(kv, remote, c)
	var nested error
	m.OnStatus = func(s MigrationStatus) {
		if s.State == MigrationMigrating && s.Progress == 10 {
			nested = m.Migrate(context.Background())
		}
	}

	require.NoError(t, m.Migrate(context.Background()))
	assert.ErrorIs(t, nested, ErrMigrationRunning)
}

func TestOverlappingMigrationsRunOnce(t *testing.T) {
	kv := storagetest.NewMemoryKV()
	seedLocal(t, kv)
	remote := storagetest.NewMemoryRemote()
	c := newRemoteContainer(kv, remote)
	c.SetIdentity(testUser)
	c.Wait()

	m := NewMigrator(kv, remote, c)
	release := remote.Hold()
	defer release()

	const runs = 8
	results := make(chan error, runs)
	for i := 0; i < runs; i++ {
		go func() { results <- m.Migrate(context.Background()) }()
	}

	// the run that got through is held by the store, every other one returns
	for i := 0; i < runs-1; i++ {
		select {
		case err := <-results:
			assert.ErrorIs(t, err, ErrMigrationRunning)
		case <-time.After(5 * time.Second):
			t.Fatal("more than one migration is running")
		}
	}

	release()
	require.NoError(t, <-results)
	assert.Equal(t, MigrationSuccess, m.Status().State)
	_, _, replaces, _ := remote.Counts()
	assert.Equal(t, 1, replaces)
}
