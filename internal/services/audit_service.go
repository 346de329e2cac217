package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"nivesh/internal/logger"
	"nivesh/internal/models"
)

// auditService persists the corrective-operation audit trail. Audit writes
// never fail the operation they describe: a failed write is logged and
// dropped so ledger corrections stay available even if the trail is not.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records one corrective operation with its change payload.
func (s *auditService) Log(action, resourceType, resourceID string, changes map[string]any) {
	entry := models.AuditLog{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
	if len(changes) > 0 {
		payload, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Warnw("failed to serialize audit changes", "action", action, "resource_id", resourceID, "error", err)
		} else {
			entry.Changes = string(payload)
		}
	}

	if err := s.db.Create(&entry).Error; err != nil {
		logger.Get().Warnw("failed to write audit log", "action", action, "resource_id", resourceID, "error", err)
	}
}
