package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DriverFor maps the DB type used in configuration onto a driver name
func DriverFor(dbType string) (string, error) {
	switch dbType {
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "postgresql":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database type %q", dbType)
	}
}

// Connect establishes a connection to the database
func Connect(driver, dsn string) (*sqlx.DB, error) {
	if driver == DriverSQLite && dsn != ":memory:" {
		// Create data directory if it doesn't exist
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %v", err)
			}
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if driver == DriverSQLite {
		// Enable foreign keys
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %v", err)
		}

		// SQLite doesn't support multiple writers; a single connection also
		// keeps ":memory:" databases alive for the lifetime of the handle
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	return db, nil
}

// InitLocalSchema creates the tables of the on-device database
func InitLocalSchema(db *sqlx.DB) error {
	// local_storage mirrors a browser's key-value storage, one namespace per device
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS local_storage (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (namespace, key)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create local_storage table: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS resources (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			file TEXT NOT NULL,
			difficulty TEXT NOT NULL DEFAULT 'beginner',
			duration TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create resources table: %v", err)
	}

	return nil
}

// InitRemoteSchema creates the user_profiles and learning_progress collections
func InitRemoteSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS user_profiles (
			user_id TEXT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			level TEXT NOT NULL DEFAULT 'beginner',
			total_progress INTEGER NOT NULL DEFAULT 0,
			achievements TEXT NOT NULL DEFAULT '[]',
			bookmarks TEXT NOT NULL DEFAULT '[]',
			notes TEXT NOT NULL DEFAULT '{}',
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create user_profiles table: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS learning_progress (
			user_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at TIMESTAMP NULL,
			progress INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, item_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create learning_progress table: %v", err)
	}

	return nil
}
