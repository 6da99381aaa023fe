package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SystemLog stores ERROR+ log records for operator queries (30-day retention).
type SystemLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp time.Time      `gorm:"index" json:"timestamp"`
	Level     string         `gorm:"size:20" json:"level"`
	Message   string         `json:"message"`
	UserID    *string        `gorm:"size:64;index" json:"user_id,omitempty"`
	Action    string         `gorm:"size:100" json:"action,omitempty"`
	Error     string         `json:"error,omitempty"`
	Extra     datatypes.JSON `json:"extra,omitempty"`
}
