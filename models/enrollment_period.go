package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnrollmentPeriod is the application window announced by an edital for a
// given year and term
type EnrollmentPeriod struct {
	ID           string    `json:"id" gorm:"primaryKey;type:uuid"`
	Year         int       `json:"year" gorm:"not null;uniqueIndex:idx_period_year_term"`
	Term         Term      `json:"term" gorm:"type:varchar(12);not null;uniqueIndex:idx_period_year_term"`
	StartsAt     time.Time `json:"startsAt" gorm:"not null"`
	EndsAt       time.Time `json:"endsAt" gorm:"not null"`
	EditalNumber string    `json:"editalNumber"`
	// ScholarshipPool is the number of scholarships authorised centrally for
	// the period. Zero disables the pool check.
	ScholarshipPool int       `json:"scholarshipPool" gorm:"not null"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// BeforeCreate assigns the primary key
func (p *EnrollmentPeriod) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// IsOpen reports whether now falls inside the window, bounds included
func (p EnrollmentPeriod) IsOpen(now time.Time) bool {
	return !now.Before(p.StartsAt) && !now.After(p.EndsAt)
}
