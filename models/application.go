package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApplicationStatus is the state of a student application
type ApplicationStatus string

const (
	ApplicationSubmitted           ApplicationStatus = "SUBMITTED"
	ApplicationSelectedBolsista    ApplicationStatus = "SELECTED_BOLSISTA"
	ApplicationSelectedVoluntario  ApplicationStatus = "SELECTED_VOLUNTARIO"
	ApplicationRejectedByProfessor ApplicationStatus = "REJECTED_BY_PROFESSOR"
	ApplicationConfirmed           ApplicationStatus = "CONFIRMED"
	ApplicationDeclinedByStudent   ApplicationStatus = "DECLINED_BY_STUDENT"
)

// Valid reports whether s is a known application status
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationSubmitted, ApplicationSelectedBolsista, ApplicationSelectedVoluntario,
		ApplicationRejectedByProfessor, ApplicationConfirmed, ApplicationDeclinedByStudent:
		return true
	}
	return false
}

// IsSelected reports whether the professor selected the application
func (s ApplicationStatus) IsSelected() bool {
	return s == ApplicationSelectedBolsista || s == ApplicationSelectedVoluntario
}

// CanTransition reports whether an application may move from s to next
func (s ApplicationStatus) CanTransition(next ApplicationStatus) bool {
	switch s {
	case ApplicationSubmitted:
		switch next {
		case ApplicationSelectedBolsista, ApplicationSelectedVoluntario, ApplicationRejectedByProfessor:
			return true
		}
		return false
	case ApplicationSelectedBolsista, ApplicationSelectedVoluntario:
		return next == ApplicationConfirmed || next == ApplicationDeclinedByStudent
	case ApplicationRejectedByProfessor, ApplicationConfirmed, ApplicationDeclinedByStudent:
		return false
	}
	return false
}

// SlotType is the kind of monitor slot a student applies for
type SlotType string

const (
	SlotBolsista   SlotType = "BOLSISTA"
	SlotVoluntario SlotType = "VOLUNTARIO"
	SlotAny        SlotType = "ANY"
)

// Valid reports whether t is a known slot type
func (t SlotType) Valid() bool {
	switch t {
	case SlotBolsista, SlotVoluntario, SlotAny:
		return true
	}
	return false
}

// AcceptsBolsista reports whether an application with this intent may be
// granted a paid slot
func (t SlotType) AcceptsBolsista() bool {
	return t == SlotBolsista || t == SlotAny
}

// Application is a student's candidacy to a project in an enrollment period
type Application struct {
	ID              string            `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID       string            `json:"projectId" gorm:"type:uuid;not null;uniqueIndex:idx_application_unique"`
	StudentID       string            `json:"studentId" gorm:"type:varchar(64);not null;uniqueIndex:idx_application_unique;index"`
	PeriodID        string            `json:"periodId" gorm:"type:uuid;not null;uniqueIndex:idx_application_unique"`
	IntendedSlot    SlotType          `json:"intendedSlot" gorm:"type:varchar(12);not null"`
	DisciplineGrade *float64          `json:"disciplineGrade"`
	SelectionGrade  *float64          `json:"selectionGrade"`
	GPA             *float64          `json:"gpa"`
	FinalScore      *float64          `json:"finalScore"`
	Status          ApplicationStatus `json:"status" gorm:"type:varchar(32);not null;index"`
	// AssignedSlot is set by the selection and survives confirm/decline
	AssignedSlot *SlotType  `json:"assignedSlot" gorm:"type:varchar(12)"`
	Feedback     *string    `json:"feedback"`
	Published    bool       `json:"published" gorm:"not null"`
	PublishedAt  *time.Time `json:"publishedAt"`
	DecidedAt    *time.Time `json:"decidedAt"`
	SubmittedAt  time.Time  `json:"submittedAt" gorm:"not null"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// BeforeCreate assigns the primary key
func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
