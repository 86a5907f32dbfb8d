package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SelectionMode records how a selection round was decided
type SelectionMode string

const (
	SelectionDirected SelectionMode = "DIRECTED"
	SelectionRanked   SelectionMode = "RANKED"
)

// SelectionRound marks the selection of a project in a period as closed.
// The unique index is what makes a second selection fail.
type SelectionRound struct {
	ID        string        `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID string        `json:"projectId" gorm:"type:uuid;not null;uniqueIndex:idx_selection_round"`
	PeriodID  string        `json:"periodId" gorm:"type:uuid;not null;uniqueIndex:idx_selection_round"`
	Mode      SelectionMode `json:"mode" gorm:"type:varchar(12);not null"`
	ClosedBy  string        `json:"closedBy" gorm:"type:varchar(64);not null"`
	ClosedAt  time.Time     `json:"closedAt" gorm:"not null"`
}

// BeforeCreate assigns the primary key
func (r *SelectionRound) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Minutes (ata) is the frozen record of a selection outcome
type Minutes struct {
	ID          string         `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID   string         `json:"projectId" gorm:"type:uuid;not null;uniqueIndex:idx_minutes_project_period"`
	PeriodID    string         `json:"periodId" gorm:"type:uuid;not null;uniqueIndex:idx_minutes_project_period"`
	Mode        SelectionMode  `json:"mode" gorm:"type:varchar(12);not null"`
	GeneratedBy string         `json:"generatedBy" gorm:"type:varchar(64);not null"`
	GeneratedAt time.Time      `json:"generatedAt" gorm:"not null"`
	Location    string         `json:"location"`
	Notes       string         `json:"notes"`
	Signed      bool           `json:"signed" gorm:"not null"`
	SignedAt    *time.Time     `json:"signedAt"`
	SignerID    *string        `json:"signerId" gorm:"type:varchar(64)"`
	DocumentID  *string        `json:"documentId" gorm:"type:uuid"`
	Entries     []MinutesEntry `json:"entries" gorm:"-"`
}

// BeforeCreate assigns the primary key
func (m *Minutes) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// MinutesEntry is one ranked line of the minutes
type MinutesEntry struct {
	ID            string            `json:"-" gorm:"primaryKey;type:uuid"`
	MinutesID     string            `json:"-" gorm:"type:uuid;not null;index"`
	Rank          int               `json:"rank" gorm:"not null"`
	ApplicationID string            `json:"applicationId" gorm:"type:uuid;not null"`
	StudentID     string            `json:"studentId" gorm:"type:varchar(64);not null"`
	Score         *float64          `json:"score"`
	Outcome       ApplicationStatus `json:"outcome" gorm:"type:varchar(32);not null"`
}

// BeforeCreate assigns the primary key
func (e *MinutesEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
