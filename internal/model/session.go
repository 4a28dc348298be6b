package model

import "time"

// Session is one persisted retrieval session: the serialized vector index and
// the source chunks it was built from, keyed by a generated id. Rows are
// created once and never updated. The json tags serve the Redis cache; a
// Session is never returned to API clients directly.
type Session struct {
	SessionID   string    `gorm:"primaryKey;size:36" json:"session_id"`
	IndexBlob   []byte    `gorm:"type:longblob;not null" json:"index_blob"`
	SourcesBlob []byte    `gorm:"type:longblob;not null" json:"sources_blob"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Session) TableName() string { return "sessions" }
