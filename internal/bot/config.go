package bot

import (
	"time"

	"github.com/example/geolearn/internal/catalog"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Characters per reader page
	PageSize int
	// How long a handler may take before its context is cancelled
	HandlerTimeout time.Duration
	// Maximum number of items listed in a reminder
	ReminderLimit int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		PageSize:       catalog.DefaultPageSize,
		HandlerTimeout: 30 * time.Second,
		ReminderLimit:  5,
	}
}
