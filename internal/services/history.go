package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/models"
	"gorm.io/gorm"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// ErrHistoryDisabled is returned when no database is configured
var ErrHistoryDisabled = errors.New("query history disabled: no database configured")

type HistoryService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db, now: time.Now}
}

// Enabled reports whether queries are being stored
func (s *HistoryService) Enabled() bool {
	return s != nil && s.db != nil
}

// Record stores one answered query
func (s *HistoryService) Record(ctx context.Context, prompt, response, source string) (*models.QueryHistory, error) {
	if !s.Enabled() {
		return nil, ErrHistoryDisabled
	}

	entry := &models.QueryHistory{
		Prompt:    prompt,
		Response:  response,
		Source:    source,
		Timestamp: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("record query history: %w", err)
	}
	return entry, nil
}

// List returns the most recent queries, newest first
func (s *HistoryService) List(ctx context.Context, limit int) ([]models.QueryHistory, error) {
	if !s.Enabled() {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	var entries []models.QueryHistory
	if err := s.db.WithContext(ctx).Order("timestamp DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list query history: %w", err)
	}
	return entries, nil
}
