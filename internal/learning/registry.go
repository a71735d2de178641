package learning

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/geolearn/internal/session"
	"github.com/example/geolearn/internal/storage"
)

// Registry owns one Container and one Migrator per device and rebinds
// containers whenever the session of their device changes.
type Registry struct {
	storeFor func(device string) storage.KeyValueStore
	remote   storage.RemoteStore
	sessions *session.Provider

	// KnownDevices, when set, lists devices that have local data but may
	// not have a container yet
	KnownDevices func(ctx context.Context) ([]string, error)

	// OnMigrationStatus, when set, receives the status changes of every migrator
	OnMigrationStatus func(device string, s MigrationStatus)

	mu         sync.Mutex
	containers map[string]*Container
	migrators  map[string]*Migrator
}

// NewRegistry creates a registry. remote may be nil, which keeps every
// device on local storage.
func NewRegistry(storeFor func(device string) storage.KeyValueStore, remote storage.RemoteStore, sessions *session.Provider) *Registry {
	r := &Registry{
		storeFor:   storeFor,
		remote:     remote,
		sessions:   sessions,
		containers: make(map[string]*Container),
		migrators:  make(map[string]*Migrator),
	}
	sessions.OnChange(r.identityChanged)
	return r
}

// RemoteEnabled reports whether a remote store is configured
func (r *Registry) RemoteEnabled() bool {
	return r.remote != nil
}

// Store returns the local storage of device
func (r *Registry) Store(device string) storage.KeyValueStore {
	return r.storeFor(device)
}

// Container returns the container of device, creating and loading it on first use
func (r *Registry) Container(ctx context.Context, device string) (*Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.containers[device]; ok {
		return c, nil
	}

	user, err := r.sessions.Current(ctx, device)
	if err != nil {
		return nil, fmt.Errorf("failed to read session of %s: %w", device, err)
	}

	var remote RemoteFactory
	if r.remote != nil {
		remote = func(u *session.User) storage.Backend {
			return storage.NewRemoteBackend(r.remote, u.ID, u.Email)
		}
	}

	c := NewContainer(device, storage.NewLocalBackend(r.storeFor(device)), remote)
	c.SetIdentity(user)
	r.containers[device] = c
	return c, nil
}

// Migrator returns the migrator of device
func (r *Registry) Migrator(ctx context.Context, device string) (*Migrator, error) {
	c, err := r.Container(ctx, device)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.migrators[device]
	if !ok {
		m = NewMigrator(r.storeFor(device), r.remote, c)
		if onStatus := r.OnMigrationStatus; onStatus != nil {
			m.OnStatus = func(s MigrationStatus) { onStatus(device, s) }
		}
		r.migrators[device] = m
	}
	return m, nil
}

// Devices lists every device with a container or with known local data
func (r *Registry) Devices(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)

	r.mu.Lock()
	for device := range r.containers {
		seen[device] = true
	}
	r.mu.Unlock()

	if r.KnownDevices != nil {
		known, err := r.KnownDevices(ctx)
		if err != nil {
			return nil, err
		}
		for _, device := range known {
			seen[device] = true
		}
	}

	devices := make([]string, 0, len(seen))
	for device := range seen {
		devices = append(devices, device)
	}
	sort.Strings(devices)
	return devices, nil
}

// Wait blocks until every container has finished its background work
func (r *Registry) Wait() {
	r.mu.Lock()
	containers := make([]*Container, 0, len(r.containers))
	for _, c := range r.containers {
		containers = append(containers, c)
	}
	r.mu.Unlock()

	for _, c := range containers {
		c.Wait()
	}
}

func (r *Registry) identityChanged(device string, user *session.User) {
	r.mu.Lock()
	c, ok := r.containers[device]
	r.mu.Unlock()

	if ok {
		c.SetIdentity(user)
	}
}
