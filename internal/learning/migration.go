package learning

import (
	"context"
	"log"
	"sync"

	"github.com/example/geolearn/internal/storage"
	"github.com/example/geolearn/pkg/models"
	"github.com/pkg/errors"
)

// MigrationState is the coarse state of a migration
type MigrationState string

const (
	MigrationIdle      MigrationState = "idle"
	MigrationChecking  MigrationState = "checking"
	MigrationMigrating MigrationState = "migrating"
	MigrationSuccess   MigrationState = "success"
	MigrationError     MigrationState = "error"
)

// Migration errors
var (
	ErrNotSignedIn      = errors.New("please sign in first")
	ErrRemoteDisabled   = errors.New("cloud sync is not configured")
	ErrNoLocalData      = errors.New("no local data found")
	ErrMigrationRunning = errors.New("migration already in progress")
)

// MigrationStatus is what the learner sees: a label and a percentage
type MigrationStatus struct {
	State    MigrationState
	Message  string
	Progress int
}

const migrationFailedMessage = "Data migration failed, please try again"

// Migrator copies a device's local storage into the remote store of the
// signed-in user. The local copy is left in place.
type Migrator struct {
	kv        storage.KeyValueStore
	remote    storage.RemoteStore
	container *Container

	// OnStatus, when set, receives every status change
	OnStatus func(MigrationStatus)

	mu     sync.Mutex
	status MigrationStatus
}

// NewMigrator creates a migrator for the device owning kv and container.
// remote may be nil when no remote store is configured.
func NewMigrator(kv storage.KeyValueStore, remote storage.RemoteStore, container *Container) *Migrator {
	return &Migrator{
		kv:        kv,
		remote:    remote,
		container: container,
		status:    MigrationStatus{State: MigrationIdle},
	}
}

// Status returns the latest status
func (m *Migrator) Status() MigrationStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Migrator) report(state MigrationState, message string, progress int) {
	s := MigrationStatus{State: state, Message: message, Progress: progress}
	m.mu.Lock()
	m.status = s
	onStatus := m.OnStatus
	m.mu.Unlock()

	if onStatus != nil {
		onStatus(s)
	}
}

func (m *Migrator) fail(err error, message string) error {
	log.Printf("Data migration failed for device %s: %v", m.container.Device(), err)
	m.report(MigrationError, message, 0)
	return err
}

// Migrate runs the whole migration. A failure leaves whatever was already
// written in the remote store; the migration can simply be run again.
func (m *Migrator) Migrate(ctx context.Context) error {
	m.mu.Lock()
	if m.status.State == MigrationChecking || m.status.State == MigrationMigrating {
		m.mu.Unlock()
		return ErrMigrationRunning
	}
	m.status = MigrationStatus{State: MigrationChecking, Message: "Checking local data...", Progress: 0}
	checking, onStatus := m.status, m.OnStatus
	m.mu.Unlock()

	if onStatus != nil {
		onStatus(checking)
	}

	user := m.container.User()
	if user == nil {
		return m.fail(ErrNotSignedIn, "Please sign in first")
	}
	if m.remote == nil {
		return m.fail(ErrRemoteDisabled, "Cloud sync is not configured")
	}

	data, err := storage.ReadLocalData(ctx, m.kv)
	if err != nil {
		return m.fail(errors.Wrap(err, "read local data"), migrationFailedMessage)
	}
	if !data.HasAny() {
		return m.fail(ErrNoLocalData, "No local data found")
	}

	m.report(MigrationMigrating, "Migrating data to the cloud...", 10)

	if data.HasProfile {
		m.report(MigrationMigrating, "Migrating profile...", 30)

		profile, err := storage.DecodeProfile(data.Profile)
		if err != nil {
			return m.fail(errors.Wrap(err, "decode local profile"), migrationFailedMessage)
		}
		record := models.ProfileRecordFrom(user.ID, profile)
		if record.Email == "" {
			record.Email = user.Email
		}
		if err := m.remote.UpsertProfile(ctx, record); err != nil {
			return m.fail(errors.Wrap(err, "upsert profile"), migrationFailedMessage)
		}
	}

	if data.HasProgress {
		m.report(MigrationMigrating, "Migrating learning progress...", 60)

		progress, err := storage.DecodeProgress(data.Progress)
		if err != nil {
			return m.fail(errors.Wrap(err, "decode local progress"), migrationFailedMessage)
		}
		if err := m.remote.ReplaceProgress(ctx, user.ID, models.ProgressRecords(user.ID, progress)); err != nil {
			return m.fail(errors.Wrap(err, "replace progress"), migrationFailedMessage)
		}
	}

	m.report(MigrationSuccess, "Data migration complete!", 100)

	m.container.SyncData(ctx)
	return nil
}
