package repository

import (
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type QueryLogRepository struct {
	db *gorm.DB
}

func NewQueryLogRepository(db *gorm.DB) *QueryLogRepository {
	return &QueryLogRepository{db: db}
}

func (r *QueryLogRepository) Create(entry *model.QueryLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("insert query log failed: %w", err)
	}
	return nil
}

func (r *QueryLogRepository) ListBySessionID(sessionID string) ([]model.QueryLog, error) {
	var entries []model.QueryLog
	if err := r.db.Where("session_id = ?", sessionID).Order("created_at").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list query logs failed: %w", err)
	}
	return entries, nil
}
