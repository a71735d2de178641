package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// LocalStorageRepository handles the namespaced key-value table
type LocalStorageRepository struct {
	db *sqlx.DB
}

// NewLocalStorageRepository creates a new repository instance
func NewLocalStorageRepository(db *sqlx.DB) *LocalStorageRepository {
	return &LocalStorageRepository{db: db}
}

// GetItem returns the value stored under key. The boolean is false when the key is absent.
func (r *LocalStorageRepository) GetItem(ctx context.Context, namespace, key string) (string, bool, error) {
	var value string
	query := r.db.Rebind("SELECT value FROM local_storage WHERE namespace = ? AND key = ?")
	err := r.db.GetContext(ctx, &value, query, namespace, key)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get item %q: %w", key, err)
	}
	return value, true, nil
}

// SetItem overwrites the value stored under key
func (r *LocalStorageRepository) SetItem(ctx context.Context, namespace, key, value string) error {
	query := r.db.Rebind(`
		INSERT INTO local_storage (namespace, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`)
	if _, err := r.db.ExecContext(ctx, query, namespace, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set item %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key; removing an absent key is not an error
func (r *LocalStorageRepository) RemoveItem(ctx context.Context, namespace, key string) error {
	query := r.db.Rebind("DELETE FROM local_storage WHERE namespace = ? AND key = ?")
	if _, err := r.db.ExecContext(ctx, query, namespace, key); err != nil {
		return fmt.Errorf("failed to remove item %q: %w", key, err)
	}
	return nil
}

// Namespaces returns every namespace that holds at least one key
func (r *LocalStorageRepository) Namespaces(ctx context.Context) ([]string, error) {
	var namespaces []string
	err := r.db.SelectContext(ctx, &namespaces, "SELECT DISTINCT namespace FROM local_storage ORDER BY namespace")
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	return namespaces, nil
}

// LocalStorage is a view of the repository bound to a single namespace
type LocalStorage struct {
	repo      *LocalStorageRepository
	namespace string
}

// NewLocalStorage binds repo to namespace
func NewLocalStorage(repo *LocalStorageRepository, namespace string) *LocalStorage {
	return &LocalStorage{repo: repo, namespace: namespace}
}

// GetItem returns the value stored under key
func (s *LocalStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	return s.repo.GetItem(ctx, s.namespace, key)
}

// SetItem overwrites the value stored under key
func (s *LocalStorage) SetItem(ctx context.Context, key, value string) error {
	return s.repo.SetItem(ctx, s.namespace, key, value)
}

// RemoveItem deletes key
func (s *LocalStorage) RemoveItem(ctx context.Context, key string) error {
	return s.repo.RemoveItem(ctx, s.namespace, key)
}
