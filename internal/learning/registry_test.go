package learning

import (
	"context"
	"sync"
	"testing"

	"github.com/example/geolearn/internal/session"
	"github.com/example/geolearn/internal/storage"
	"github.com/example/geolearn/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStores struct {
	mu     sync.Mutex
	stores map[string]*storagetest.MemoryKV
}

func (s *memoryStores) storeFor(device string) storage.KeyValueStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stores == nil {
		s.stores = make(map[string]*storagetest.MemoryKV)
	}
	kv, ok := s.stores[device]
	if !ok {
		kv = storagetest.NewMemoryKV()
		s.stores[device] = kv
	}
	return kv
}

func TestRegistryFollowsSession(t *testing.T) {
	ctx := context.Background()
	stores := &memoryStores{}
	sessions := session.NewProvider(stores.storeFor)
	remote := storagetest.NewMemoryRemote()
	r := NewRegistry(stores.storeFor, remote, sessions)

	c, err := r.Container(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "local", c.BackendName())

	again, err := r.Container(ctx, "chat-1")
	require.NoError(t, err)
	assert.Same(t, c, again)

	_, err = sessions.SignIn(ctx, "chat-1", "ana@example.com")
	require.NoError(t, err)
	r.Wait()
	assert.Equal(t, "remote", c.BackendName())
	assert.Equal(t, "ana", c.Profile().Name)

	require.NoError(t, sessions.SignOut(ctx, "chat-1"))
	assert.Equal(t, "local", c.BackendName())
	assert.Nil(t, c.User())
}

func TestRegistryRestoresSession(t *testing.T) {
	ctx := context.Background()
	stores := &memoryStores{}
	sessions := session.NewProvider(stores.storeFor)
	_, err := sessions.SignIn(ctx, "chat-1", "ana@example.com")
	require.NoError(t, err)

	r := NewRegistry(stores.storeFor, storagetest.NewMemoryRemote(), sessions)
	c, err := r.Container(ctx, "chat-1")
	require.NoError(t, err)
	r.Wait()

	require.NotNil(t, c.User())
	assert.Equal(t, session.UserIDForEmail("ana@example.com"), c.User().ID)
	assert.Equal(t, "remote", c.BackendName())
}

func TestRegistryDevicesAndMigrator(t *testing.T) {
	ctx := context.Background()
	stores := &memoryStores{}
	r := NewRegistry(stores.storeFor, nil, session.NewProvider(stores.storeFor))
	r.KnownDevices = func(context.Context) ([]string, error) { return []string{"chat-2", "chat-1"}, nil }
	assert.False(t, r.RemoteEnabled())

	_, err := r.Container(ctx, "chat-3")
	require.NoError(t, err)

	devices, err := r.Devices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"chat-1", "chat-2", "chat-3"}, devices)

	m, err := r.Migrator(ctx, "chat-3")
	require.NoError(t, err)
	again, err := r.Migrator(ctx, "chat-3")
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Equal(t, MigrationIdle, m.Status().State)
}
