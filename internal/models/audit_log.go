package models

import (
	"time"

	"gorm.io/gorm"

	"nivesh/internal/uuid"
)

// AuditLog records corrective ledger operations: transaction edits and
// deletes, and retroactive face-value adjustments.
type AuditLog struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Action       string    `gorm:"not null" json:"action"`
	ResourceType string    `gorm:"not null" json:"resource_type"`
	ResourceID   string    `gorm:"index" json:"resource_id"`
	Changes      string    `json:"changes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUIDv7 primary key for new records.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New()
	}
	return nil
}
