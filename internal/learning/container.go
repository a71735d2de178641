// Package learning holds the learner's profile and progress for one device
// and keeps them in sync with whichever backend is authoritative.
package learning

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/example/geolearn/internal/session"
	"github.com/example/geolearn/internal/storage"
	"github.com/example/geolearn/pkg/models"
	"github.com/go-playground/validator/v10"
)

// RemoteFactory builds the remote backend of a signed-in user
type RemoteFactory func(user *session.User) storage.Backend

// Container is the single in-memory holder of one device's learner state.
//
// Mutations are serialized by mu and wait for an in-flight load, so they
// always apply on top of the state of the current backend. Writes to the
// local backend happen inline, in mutation order. Writes to a remote backend
// run in their own goroutines and may complete in any order.
type Container struct {
	device   string
	local    storage.Backend
	remote   RemoteFactory
	validate *validator.Validate
	now      func() time.Time

	mu         sync.Mutex
	user       *session.User
	backend    storage.Backend
	generation uint64
	loading    bool
	loaded     chan struct{} // closed when the in-flight load finishes
	profile    models.UserProfile
	progress   models.ProgressMap

	wg sync.WaitGroup
}

// NewContainer creates the container of device. remote may be nil, in which
// case everything stays local even for signed-in users.
func NewContainer(device string, local storage.Backend, remote RemoteFactory) *Container {
	return &Container{
		device:   device,
		local:    local,
		remote:   remote,
		validate: validator.New(),
		now:      time.Now,
		backend:  local,
		profile:  models.NewDefaultProfile(),
		progress: models.ProgressMap{},
	}
}

// Device returns the device this container belongs to
func (c *Container) Device() string {
	return c.device
}

// SetIdentity selects the backend for user and reloads state from it.
// A nil user selects local storage. Remote loads run in the background
// with IsLoading reporting true until they finish.
func (c *Container) SetIdentity(user *session.User) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.user = user

	backend := c.local
	if user != nil && c.remote != nil {
		backend = c.remote(user)
	}
	c.backend = backend
	c.beginLoadLocked()
	c.mu.Unlock()

	if backend == c.local {
		c.load(context.Background(), gen, backend)
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.load(context.Background(), gen, backend)
	}()
}

// SyncData reloads state from the remote store and returns when done.
// Without a signed-in user it does nothing.
func (c *Container) SyncData(ctx context.Context) {
	c.mu.Lock()
	if c.user == nil || c.backend == c.local {
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	backend := c.backend
	c.beginLoadLocked()
	c.mu.Unlock()

	c.load(ctx, gen, backend)
}

// beginLoadLocked marks a load as in flight. Waiters of a load it
// supersedes are woken and wait again for this one.
func (c *Container) beginLoadLocked() {
	if c.loading {
		close(c.loaded)
	}
	c.loading = true
	c.loaded = make(chan struct{})
}

func (c *Container) endLoadLocked() {
	if c.loading {
		close(c.loaded)
		c.loading = false
	}
}

func (c *Container) load(ctx context.Context, gen uint64, backend storage.Backend) {
	snap, err := backend.Load(ctx)
	if err != nil && backend != c.local {
		log.Printf("Error loading %s data for device %s, falling back to local storage: %v", backend.Name(), c.device, err)
		snap, err = c.local.Load(ctx)
	}
	if err != nil {
		log.Printf("Error loading local data for device %s: %v", c.device, err)
		snap = storage.Snapshot{Profile: models.NewDefaultProfile(), Progress: models.ProgressMap{}}
	}
	if snap.Progress == nil {
		snap.Progress = models.ProgressMap{}
	}
	snap.Profile.Normalize()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// the identity changed while this load was running
		return
	}
	c.profile = snap.Profile
	c.progress = snap.Progress
	c.profile.TotalProgress = c.progress.TotalProgress()
	c.endLoadLocked()
}

// Wait blocks until background loads and remote writes have finished
func (c *Container) Wait() {
	c.wg.Wait()
}

// WaitLoaded blocks until no load is in flight or ctx is done
func (c *Container) WaitLoaded(ctx context.Context) error {
	for {
		c.mu.Lock()
		if !c.loading {
			c.mu.Unlock()
			return nil
		}
		done := c.loaded
		c.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// lockLoaded acquires mu once no load is in flight
func (c *Container) lockLoaded() {
	for {
		c.mu.Lock()
		if !c.loading {
			return
		}
		done := c.loaded
		c.mu.Unlock()
		<-done
	}
}

// IsLoading reports whether a load is in flight
func (c *Container) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// User returns the identity the container is bound to, or nil
func (c *Container) User() *session.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// BackendName names the backend currently in use
func (c *Container) BackendName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backend.Name()
}

// Profile returns a copy of the profile
func (c *Container) Profile() models.UserProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile.Clone()
}

// Progress returns a copy of the progress map
func (c *Container) Progress() models.ProgressMap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress.Clone()
}

// Entry returns the progress of one item
func (c *Container) Entry(itemID string) (models.ProgressEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.progress[itemID]
	return e, ok
}

// UpdateProgress records progress for itemID. progress is clamped to [0,100].
// completedAt is stamped the first time the item becomes completed and kept afterwards.
func (c *Container) UpdateProgress(itemID string, progress int, completed bool) {
	c.lockLoaded()
	defer c.mu.Unlock()

	c.updateProgressLocked(itemID, progress, completed)
}

func (c *Container) updateProgressLocked(itemID string, progress int, completed bool) {
	prev, existed := c.progress[itemID]
	entry := models.ProgressEntry{
		Completed:   completed,
		CompletedAt: prev.CompletedAt,
		Progress:    models.ClampProgress(progress),
	}
	if completed && entry.CompletedAt == nil {
		now := c.now()
		entry.CompletedAt = &now
	}
	if existed && prev.Equal(entry) {
		return
	}

	c.progress[itemID] = entry
	c.profile.TotalProgress = c.progress.TotalProgress()
	c.persistLocked(true, true)
}

// ToggleCompletion flips an item between completed (100) and not started (0)
// and returns the new completion state
func (c *Container) ToggleCompletion(itemID string) bool {
	c.lockLoaded()
	defer c.mu.Unlock()

	if c.progress[itemID].Completed {
		c.updateProgressLocked(itemID, 0, false)
		return false
	}
	c.updateProgressLocked(itemID, 100, true)
	return true
}

// advanceReading records a reading position for itemID. Progress never goes
// down and a completed item stays completed.
func (c *Container) advanceReading(itemID string, percent int) {
	c.lockLoaded()
	defer c.mu.Unlock()

	entry := c.progress[itemID]
	percent = models.ClampProgress(percent)
	if entry.Progress > percent {
		percent = entry.Progress
	}
	c.updateProgressLocked(itemID, percent, entry.Completed || percent >= CompletionThreshold)
}

// AddBookmark bookmarks id. Re-adding an existing bookmark moves it to the end.
func (c *Container) AddBookmark(id string) {
	c.lockLoaded()
	defer c.mu.Unlock()

	bookmarks := removeAll(c.profile.Bookmarks, id)
	c.profile.Bookmarks = append(bookmarks, id)
	c.persistLocked(true, false)
}

// RemoveBookmark removes every occurrence of id
func (c *Container) RemoveBookmark(id string) {
	c.lockLoaded()
	defer c.mu.Unlock()

	if !c.profile.HasBookmark(id) {
		return
	}
	c.profile.Bookmarks = removeAll(c.profile.Bookmarks, id)
	c.persistLocked(true, false)
}

// AddNote sets the note of id, replacing any previous one
func (c *Container) AddNote(id, text string) {
	c.lockLoaded()
	defer c.mu.Unlock()

	c.profile.Notes[id] = text
	c.persistLocked(true, false)
}

// UpdateProfile merges the fields present in update into the profile
func (c *Container) UpdateProfile(update ProfileUpdate) error {
	if err := c.validate.Struct(update); err != nil {
		return err
	}

	c.lockLoaded()
	defer c.mu.Unlock()

	update.apply(&c.profile)
	c.persistLocked(true, false)
	return nil
}

// UnfinishedBookmarks returns bookmarked items that are not completed, in bookmark order
func (c *Container) UnfinishedBookmarks() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ids []string
	for _, id := range c.profile.Bookmarks {
		if !c.progress[id].Completed {
			ids = append(ids, id)
		}
	}
	return ids
}

// persistLocked writes the requested parts of the state through to the
// current backend. Callers hold mu.
func (c *Container) persistLocked(profile, progress bool) {
	backend := c.backend

	var p models.UserProfile
	var m models.ProgressMap
	if profile {
		p = c.profile.Clone()
	}
	if progress {
		m = c.progress.Clone()
	}

	save := func() {
		ctx := context.Background()
		if progress {
			if err := backend.SaveProgress(ctx, m); err != nil {
				log.Printf("Error saving %s progress for device %s: %v", backend.Name(), c.device, err)
			}
		}
		if profile {
			if err := backend.SaveProfile(ctx, p); err != nil {
				log.Printf("Error saving %s profile for device %s: %v", backend.Name(), c.device, err)
			}
		}
	}

	if backend == c.local {
		save()
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		save()
	}()
}

func removeAll(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
