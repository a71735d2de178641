// Package storagetest provides in-memory stores for tests.
package storagetest

import (
	"context"
	"errors"
	"sync"

	"github.com/example/geolearn/pkg/models"
)

// ErrUnavailable is returned by a MemoryRemote with Fail set
var ErrUnavailable = errors.New("remote store unavailable")

// MemoryKV is an in-memory KeyValueStore
type MemoryKV struct {
	mu    sync.Mutex
	items map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: make(map[string]string)}
}

func (m *MemoryKV) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryKV) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MemoryKV) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// MemoryRemote is an in-memory RemoteStore that counts calls
type MemoryRemote struct {
	mu       sync.Mutex
	profiles map[string]models.ProfileRecord
	progress map[string]map[string]models.ProgressRecord

	// Fail makes every call return ErrUnavailable
	Fail bool

	gate chan struct{}

	ProfileUpserts   int
	ProgressUpserts  int
	ProgressReplaces int
	UpsertedRows     int
}

func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{
		profiles: make(map[string]models.ProfileRecord),
		progress: make(map[string]map[string]models.ProgressRecord),
	}
}

// SetFail toggles failure injection
func (m *MemoryRemote) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fail = fail
}

// Hold blocks every store call until the returned release func is called
func (m *MemoryRemote) Hold() (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gate = gate
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.gate == gate {
				m.gate = nil
			}
			m.mu.Unlock()
			close(gate)
		})
	}
}

func (m *MemoryRemote) wait() {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

// Counts returns the call counters under the lock
func (m *MemoryRemote) Counts() (profileUpserts, progressUpserts, progressReplaces, upsertedRows int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ProfileUpserts, m.ProgressUpserts, m.ProgressReplaces, m.UpsertedRows
}

// Profile returns the stored profile row, if any
func (m *MemoryRemote) Profile(userID string) (models.ProfileRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.profiles[userID]
	return r, ok
}

// Rows returns the stored progress rows of a user
func (m *MemoryRemote) Rows(userID string) map[string]models.ProgressRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make(map[string]models.ProgressRecord, len(m.progress[userID]))
	for k, v := range m.progress[userID] {
		rows[k] = v
	}
	return rows
}

func (m *MemoryRemote) GetProfile(_ context.Context, userID string) (*models.ProfileRecord, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return nil, ErrUnavailable
	}
	r, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *MemoryRemote) UpsertProfile(_ context.Context, record models.ProfileRecord) error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrUnavailable
	}
	m.ProfileUpserts++
	m.profiles[record.UserID] = record
	return nil
}

func (m *MemoryRemote) ListProgress(_ context.Context, userID string) ([]models.ProgressRecord, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return nil, ErrUnavailable
	}
	var records []models.ProgressRecord
	for _, r := range m.progress[userID] {
		records = append(records, r)
	}
	return records, nil
}

func (m *MemoryRemote) UpsertProgress(_ context.Context, records []models.ProgressRecord) error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrUnavailable
	}
	m.ProgressUpserts++
	for _, r := range records {
		if m.progress[r.UserID] == nil {
			m.progress[r.UserID] = make(map[string]models.ProgressRecord)
		}
		m.progress[r.UserID][r.ItemID] = r
		m.UpsertedRows++
	}
	return nil
}

func (m *MemoryRemote) ReplaceProgress(_ context.Context, userID string, records []models.ProgressRecord) error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrUnavailable
	}
	m.ProgressReplaces++
	rows := make(map[string]models.ProgressRecord, len(records))
	for _, r := range records {
		rows[r.ItemID] = r
	}
	m.progress[userID] = rows
	return nil
}
