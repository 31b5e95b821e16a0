package database

import (
	"strings"

	"focuslog/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm/clause"
)

// LoadCategories returns the persisted program -> category map.
func (r *Repository) LoadCategories() (map[string]string, error) {
	var rows []models.ProgramCategory
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load categories")
	}

	categories := make(map[string]string, len(rows))
	for _, row := range rows {
		categories[row.Program] = row.Category
	}
	return categories, nil
}

// SaveCategory upserts one entry of the category map.
func (r *Repository) SaveCategory(program, category string) error {
	program = strings.TrimSpace(program)
	if program == "" {
		return errors.New("program name cannot be empty")
	}

	entry := models.ProgramCategory{Program: program, Category: category}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "program"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return &PersistenceError{Op: "save category", Err: err}
	}
	return nil
}

// ListCategoryEntries returns the category map sorted by program.
func (r *Repository) ListCategoryEntries() ([]models.ProgramCategory, error) {
	var rows []models.ProgramCategory
	if err := r.db.Order("program ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list categories")
	}
	return rows, nil
}

// Categories returns the distinct category names in use, sorted.
func (r *Repository) Categories() ([]string, error) {
	var names []string
	err := r.db.Model(&models.ProgramCategory{}).
		Distinct("category").Order("category ASC").Pluck("category", &names).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list category names")
	}
	return names, nil
}
