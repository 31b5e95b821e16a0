package models

import "time"

// DefaultCategory is assigned whenever a program has no resolved category.
const DefaultCategory = "Misc"

// ProgramCategory is one entry of the program -> category map.
type ProgramCategory struct {
	Program   string    `gorm:"primaryKey" json:"program"`
	Category  string    `gorm:"not null;index" json:"category"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
