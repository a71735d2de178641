package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/geolearn/pkg/models"
	"github.com/jmoiron/sqlx"
)

const resourceColumns = `id, title, description, category, file, difficulty, duration, tags, created_at, updated_at`

// ResourceRepository handles database operations for the resource catalog
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository creates a new repository instance
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// GetAll returns every resource ordered by category and id
func (r *ResourceRepository) GetAll(ctx context.Context) ([]models.Resource, error) {
	var resources []models.Resource
	query := "SELECT " + resourceColumns + " FROM resources ORDER BY category, id"
	if err := r.db.SelectContext(ctx, &resources, query); err != nil {
		return nil, fmt.Errorf("failed to get resources: %w", err)
	}
	return resources, nil
}

// GetByCategory returns the resources of one category
func (r *ResourceRepository) GetByCategory(ctx context.Context, category string) ([]models.Resource, error) {
	var resources []models.Resource
	query := r.db.Rebind("SELECT " + resourceColumns + " FROM resources WHERE category = ? ORDER BY id")
	if err := r.db.SelectContext(ctx, &resources, query, category); err != nil {
		return nil, fmt.Errorf("failed to get resources by category: %w", err)
	}
	return resources, nil
}

// GetByID returns a resource, or nil when it does not exist
func (r *ResourceRepository) GetByID(ctx context.Context, id string) (*models.Resource, error) {
	var resource models.Resource
	query := r.db.Rebind("SELECT " + resourceColumns + " FROM resources WHERE id = ?")
	err := r.db.GetContext(ctx, &resource, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return &resource, nil
}

// CreateOrUpdate inserts the resource or updates the existing one with the same id.
// It reports whether a new row was created.
func (r *ResourceRepository) CreateOrUpdate(ctx context.Context, resource *models.Resource) (bool, error) {
	existing, err := r.GetByID(ctx, resource.ID)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	resource.UpdatedAt = now

	if existing != nil {
		resource.CreatedAt = existing.CreatedAt
		query := `
			UPDATE resources SET
				title = :title,
				description = :description,
				category = :category,
				file = :file,
				difficulty = :difficulty,
				duration = :duration,
				tags = :tags,
				updated_at = :updated_at
			WHERE id = :id
		`
		if _, err := r.db.NamedExecContext(ctx, query, resource); err != nil {
			return false, fmt.Errorf("failed to update resource: %w", err)
		}
		return false, nil
	}

	resource.CreatedAt = now
	query := `
		INSERT INTO resources (` + resourceColumns + `)
		VALUES (:id, :title, :description, :category, :file, :difficulty, :duration, :tags, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, resource); err != nil {
		return false, fmt.Errorf("failed to create resource: %w", err)
	}
	return true, nil
}

// Count returns the number of resources in the catalog
func (r *ResourceRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM resources"); err != nil {
		return 0, fmt.Errorf("failed to count resources: %w", err)
	}
	return count, nil
}
