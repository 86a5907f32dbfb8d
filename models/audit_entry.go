package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditEntry is an append-only record of a state-changing action
type AuditEntry struct {
	ID         string         `json:"id" gorm:"primaryKey;type:uuid"`
	ActorID    string         `json:"actorId" gorm:"type:varchar(64);not null;index"`
	Action     string         `json:"action" gorm:"size:40;not null"`
	EntityType string         `json:"entityType" gorm:"size:40;not null;index:idx_audit_entity"`
	EntityID   string         `json:"entityId" gorm:"not null;index:idx_audit_entity"`
	Timestamp  time.Time      `json:"timestamp" gorm:"column:occurred_at;not null;index"`
	Metadata   datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
}

// BeforeCreate assigns the primary key
func (e *AuditEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
