package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persists retrieval sessions. Sessions are insert-only:
// there is no update or delete. Each call runs as its own pooled operation;
// no handle is shared across calls.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *model.Session) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("insert session %s failed: %w", session.SessionID, err)
	}
	return nil
}

func (r *SessionRepository) GetByID(sessionID string) (*model.Session, error) {
	var session model.Session
	if err := r.db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("query session %s failed: %w", sessionID, err)
	}
	return &session, nil
}

func (r *SessionRepository) ListIDs() ([]string, error) {
	var ids []string
	if err := r.db.Model(&model.Session{}).Order("created_at").Pluck("session_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list session ids failed: %w", err)
	}
	return ids, nil
}
