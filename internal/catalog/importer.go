package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/geolearn/internal/database"
	"github.com/example/geolearn/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath          string // Path to the Excel or CSV file
	CategoryColumn    string
	FileColumn        string // Markdown file name inside the category
	TitleColumn       string
	DescriptionColumn string
	DifficultyColumn  string
	DurationColumn    string
	TagsColumn        string // Comma separated tags
	SheetName         string // Name of the sheet to import
	StartRow          int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		CategoryColumn:    "A",
		FileColumn:        "B",
		TitleColumn:       "C",
		DescriptionColumn: "D",
		DifficultyColumn:  "E",
		DurationColumn:    "F",
		TagsColumn:        "G",
		SheetName:         "Sheet1",
		StartRow:          2, // skip the header row
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Updated        int
	Errors         []string
}

// Import loads resources from an Excel or CSV file into repo
func Import(ctx context.Context, repo *database.ResourceRepository, config ImportConfig) (*ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config.FilePath, config.SheetName)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		if i < config.StartRow-1 || isBlank(row) {
			continue
		}
		result.TotalProcessed++

		resource, err := parseRow(row, config)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}

		created, err := repo.CreateOrUpdate(ctx, resource)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	return result, nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %v", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %v", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseRow turns a spreadsheet row into a resource
func parseRow(row []string, config ImportConfig) (*models.Resource, error) {
	r := &models.Resource{
		Category:    cell(row, config.CategoryColumn),
		File:        cell(row, config.FileColumn),
		Title:       cell(row, config.TitleColumn),
		Description: cell(row, config.DescriptionColumn),
		Duration:    cell(row, config.DurationColumn),
		Tags:        cell(row, config.TagsColumn),
	}

	if r.Category == "" {
		return nil, fmt.Errorf("category cannot be empty")
	}
	if r.File == "" {
		return nil, fmt.Errorf("file cannot be empty")
	}
	if !strings.HasSuffix(r.File, ".md") {
		r.File += ".md"
	}
	if r.Title == "" {
		r.Title = strings.TrimSuffix(r.File, ".md")
	}

	r.Difficulty = models.LevelBeginner
	if d := models.Level(strings.ToLower(cell(row, config.DifficultyColumn))); d != "" {
		if !d.Valid() {
			return nil, fmt.Errorf("unknown difficulty %q", d)
		}
		r.Difficulty = d
	}

	r.ID = models.ResourceID(r.Category, r.File)
	return r, nil
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	if idx := columnToIndex(column); idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
