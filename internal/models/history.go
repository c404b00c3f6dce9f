package models

import (
	"time"
)

// QueryHistory is one answered Revit query. Generated plans are never stored.
type QueryHistory struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Prompt    string    `gorm:"type:text;not null" json:"prompt"`
	Response  string    `gorm:"type:text" json:"response"`
	Source    string    `gorm:"size:32" json:"source"` // "llm" or "fallback"
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
}

// TableName keeps the table name stable across renames
func (QueryHistory) TableName() string {
	return "query_histories"
}
