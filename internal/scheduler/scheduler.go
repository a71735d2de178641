package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/example/geolearn/internal/learning"
	"github.com/go-co-op/gocron"
)

// DefaultReminderTime is when the daily reminder goes out (UTC)
const DefaultReminderTime = "09:00"

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	registry  *learning.Registry
	tracker   *learning.ReadingTracker
	notifier  Notifier

	flushEvery   time.Duration
	reminderTime string
}

// Notifier interface for sending notifications
type Notifier interface {
	SendReminder(device string, itemIDs []string) error
}

// New creates a new scheduler instance
func New(registry *learning.Registry, tracker *learning.ReadingTracker, notifier Notifier, flushEvery time.Duration, reminderTime string) *Scheduler {
	if reminderTime == "" {
		reminderTime = DefaultReminderTime
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:    s,
		registry:     registry,
		tracker:      tracker,
		notifier:     notifier,
		flushEvery:   flushEvery,
		reminderTime: reminderTime,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.flushEvery).Do(s.flushReading); err != nil {
		return err
	}
	if _, err := s.scheduler.Every(1).Day().At(s.reminderTime).Do(s.sendReminders); err != nil {
		return err
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks and applies pending reading progress
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.flushReading()
}

// Jobs returns the number of scheduled jobs
func (s *Scheduler) Jobs() int {
	return s.scheduler.Len()
}

func (s *Scheduler) flushReading() {
	if n := s.tracker.Flush(); n > 0 {
		log.Printf("Applied %d pending reading updates", n)
	}
}

func (s *Scheduler) sendReminders() {
	if _, err := s.RunReminders(context.Background()); err != nil {
		log.Printf("Error sending reminders: %v", err)
	}
}

// RunReminders reminds every device with bookmarked but unfinished items and
// returns how many reminders were sent
func (s *Scheduler) RunReminders(ctx context.Context) (int, error) {
	devices, err := s.registry.Devices(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, device := range devices {
		c, err := s.registry.Container(ctx, device)
		if err != nil {
			log.Printf("Error loading learner state for device %s: %v", device, err)
			continue
		}
		if err := c.WaitLoaded(ctx); err != nil {
			return sent, err
		}

		unfinished := c.UnfinishedBookmarks()
		if len(unfinished) == 0 {
			continue
		}
		if err := s.notifier.SendReminder(device, unfinished); err != nil {
			log.Printf("Error sending reminder to device %s: %v", device, err)
			continue
		}
		sent++
	}
	return sent, nil
}
