package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryStatus tracks a single notification in the outbox
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "PENDING"
	DeliverySent    DeliveryStatus = "SENT"
	DeliveryFailed  DeliveryStatus = "FAILED"
)

// EventSelectionResult is the notification event emitted on publish
const EventSelectionResult = "selection-result"

// NotificationDelivery is the outbox row for one (application, event) pair
type NotificationDelivery struct {
	ID             string         `json:"id" gorm:"primaryKey;type:uuid"`
	IdempotencyKey string         `json:"idempotencyKey" gorm:"not null;uniqueIndex"`
	ApplicationID  string         `json:"applicationId" gorm:"type:uuid;not null;index"`
	ProjectID      string         `json:"projectId" gorm:"type:uuid;not null;index:idx_delivery_project_period"`
	PeriodID       string         `json:"periodId" gorm:"type:uuid;not null;index:idx_delivery_project_period"`
	Recipient      string         `json:"recipient" gorm:"not null"`
	TemplateID     string         `json:"templateId" gorm:"not null"`
	Status         DeliveryStatus `json:"status" gorm:"type:varchar(12);not null"`
	Attempts       int            `json:"attempts" gorm:"not null"`
	LastError      string         `json:"lastError"`
	SentAt         *time.Time     `json:"sentAt"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// BeforeCreate assigns the primary key
func (d *NotificationDelivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// IdempotencyKeyFor builds the per (application, event) idempotency key
func IdempotencyKeyFor(applicationID, event string) string {
	return fmt.Sprintf("%s:%s", applicationID, event)
}
