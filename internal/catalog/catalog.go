// Package catalog manages the curated learning resources: the built-in
// list, spreadsheet imports and fetching the markdown of each article.
package catalog

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/example/geolearn/internal/database"
	"github.com/example/geolearn/pkg/models"
)

// Known categories
const (
	CategoryLearningGuides    = "learning_guides"
	CategoryLearningResources = "learning_resources"
	CategoryCaseStudies       = "case_studies"
	CategoryToolsTemplates    = "tools_templates"
)

// Defaults is the catalog shipped with the portal
var Defaults = []models.Resource{
	{
		Title:       "GEO Fundamentals",
		Description: "The core concepts, principles and uses of generative engine optimization",
		Category:    CategoryLearningGuides,
		File:        "geo_fundamentals.md",
		Difficulty:  models.LevelBeginner,
		Duration:    "2-3 hours",
		Tags:        "getting started,core concepts,AI search",
	},
	{
		Title:       "Learning Paths",
		Description: "A structured GEO learning path with skill level definitions",
		Category:    CategoryLearningGuides,
		File:        "learning_paths.md",
		Difficulty:  models.LevelBeginner,
		Duration:    "1 hour",
		Tags:        "study plan,career,skills",
	},
	{
		Title:       "Technical Implementation Guide",
		Description: "Step by step GEO implementation with worked examples",
		Category:    CategoryLearningGuides,
		File:        "technical_implementation.md",
		Difficulty:  models.LevelIntermediate,
		Duration:    "3-4 hours",
		Tags:        "implementation,hands-on,schema markup",
	},
	{
		Title:       "Best Practices Handbook",
		Description: "Optimization techniques collected from real projects",
		Category:    CategoryLearningGuides,
		File:        "best_practices.md",
		Difficulty:  models.LevelIntermediate,
		Duration:    "2-3 hours",
		Tags:        "best practices,optimization",
	},
	{
		Title:       "Success Stories",
		Description: "How companies in different industries rolled out GEO",
		Category:    CategoryCaseStudies,
		File:        "success_stories.md",
		Difficulty:  models.LevelIntermediate,
		Duration:    "1-2 hours",
		Tags:        "case studies,ROI,strategy",
	},
	{
		Title:       "ROI and Business Analysis Tools",
		Description: "Estimating the return on a GEO investment",
		Category:    CategoryToolsTemplates,
		File:        "roi_business_analysis_tools.md",
		Difficulty:  models.LevelExpert,
		Duration:    "30 minutes",
		Tags:        "ROI,business analysis,data",
	},
}

// Catalog is the resource list backed by the local database
type Catalog struct {
	repo *database.ResourceRepository
}

// New creates a catalog over repo
func New(repo *database.ResourceRepository) *Catalog {
	return &Catalog{repo: repo}
}

// Seed stores the built-in resources when the catalog is empty
func (c *Catalog) Seed(ctx context.Context) error {
	count, err := c.repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, r := range Defaults {
		r.ID = models.ResourceID(r.Category, r.File)
		if _, err := c.repo.CreateOrUpdate(ctx, &r); err != nil {
			return fmt.Errorf("failed to seed %s: %w", r.ID, err)
		}
	}
	log.Printf("Seeded catalog with %d resources", len(Defaults))
	return nil
}

// List returns the resources of category, or all of them when category is empty
func (c *Catalog) List(ctx context.Context, category string) ([]models.Resource, error) {
	if category == "" {
		return c.repo.GetAll(ctx)
	}
	return c.repo.GetByCategory(ctx, category)
}

// Get returns a resource by id, or nil
func (c *Catalog) Get(ctx context.Context, id string) (*models.Resource, error) {
	return c.repo.GetByID(ctx, id)
}

// Categories returns the categories present in the catalog
func (c *Catalog) Categories(ctx context.Context) ([]string, error) {
	resources, err := c.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var categories []string
	for _, r := range resources {
		if !seen[r.Category] {
			seen[r.Category] = true
			categories = append(categories, r.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}
