package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings read from the environment
type Config struct {
	TelegramToken   string
	LocalDBPath     string
	RemoteDBType    string // empty disables cloud sync
	RemoteDBDSN     string
	ContentBaseURL  string
	CatalogFile     string
	ReadingThrottle time.Duration
	ReminderTime    string
	EnableScheduler bool
	PageSize        int
}

// RemoteEnabled reports whether a remote store is configured
func (c *Config) RemoteEnabled() bool {
	return c.RemoteDBType != ""
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	cfg := &Config{
		TelegramToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		LocalDBPath:     getEnv("LOCAL_DB_PATH", "data/local.db"),
		RemoteDBType:    getEnv("REMOTE_DB_TYPE", ""),
		RemoteDBDSN:     getEnv("REMOTE_DB_DSN", ""),
		ContentBaseURL:  getEnv("CONTENT_BASE_URL", "http://localhost:5173"),
		CatalogFile:     getEnv("CATALOG_FILE", ""),
		ReminderTime:    getEnv("REMINDER_TIME", "09:00"),
		EnableScheduler: getEnv("ENABLE_SCHEDULER", "true") != "false",
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	if cfg.RemoteEnabled() && cfg.RemoteDBDSN == "" {
		return nil, fmt.Errorf("REMOTE_DB_DSN must be set when REMOTE_DB_TYPE is %q", cfg.RemoteDBType)
	}
	if _, err := time.Parse("15:04", cfg.ReminderTime); err != nil {
		return nil, fmt.Errorf("invalid REMINDER_TIME %q: %v", cfg.ReminderTime, err)
	}

	cfg.ReadingThrottle, err = time.ParseDuration(getEnv("READING_THROTTLE", "2s"))
	if err != nil || cfg.ReadingThrottle <= 0 {
		return nil, fmt.Errorf("invalid READING_THROTTLE %q", os.Getenv("READING_THROTTLE"))
	}

	cfg.PageSize, err = strconv.Atoi(getEnv("PAGE_SIZE", "3000"))
	if err != nil || cfg.PageSize <= 0 {
		return nil, fmt.Errorf("invalid PAGE_SIZE %q", os.Getenv("PAGE_SIZE"))
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
