package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectStatus is the lifecycle state of a monitor project
type ProjectStatus string

const (
	ProjectStatusDraft                     ProjectStatus = "DRAFT"
	ProjectStatusSubmitted                 ProjectStatus = "SUBMITTED"
	ProjectStatusApproved                  ProjectStatus = "APPROVED"
	ProjectStatusRejected                  ProjectStatus = "REJECTED"
	ProjectStatusPendingProfessorSignature ProjectStatus = "PENDING_PROFESSOR_SIGNATURE"
	ProjectStatusPendingAdminSignature     ProjectStatus = "PENDING_ADMIN_SIGNATURE"
)

// Valid reports whether s is one of the known project states
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusDraft, ProjectStatusSubmitted, ProjectStatusApproved, ProjectStatusRejected,
		ProjectStatusPendingProfessorSignature, ProjectStatusPendingAdminSignature:
		return true
	}
	return false
}

// CanTransition reports whether a project may move from s to next.
// The table is closed: any pair not listed here is illegal.
func (s ProjectStatus) CanTransition(next ProjectStatus) bool {
	switch s {
	case ProjectStatusDraft:
		return next == ProjectStatusSubmitted
	case ProjectStatusSubmitted:
		switch next {
		case ProjectStatusApproved, ProjectStatusRejected, ProjectStatusDraft,
			ProjectStatusPendingProfessorSignature, ProjectStatusPendingAdminSignature:
			return true
		}
		return false
	case ProjectStatusPendingProfessorSignature, ProjectStatusPendingAdminSignature:
		return next == ProjectStatusSubmitted
	case ProjectStatusApproved, ProjectStatusRejected:
		return false
	}
	return false
}

// Term is the academic semester a project runs in
type Term string

const (
	TermFirst  Term = "SEMESTRE_1"
	TermSecond Term = "SEMESTRE_2"
)

// Valid reports whether t is a known term
func (t Term) Valid() bool {
	return t == TermFirst || t == TermSecond
}

// ProposalType distinguishes single-professor from shared proposals
type ProposalType string

const (
	ProposalIndividual ProposalType = "INDIVIDUAL"
	ProposalCollective ProposalType = "COLLECTIVE"
)

// Valid reports whether p is a known proposal type
func (p ProposalType) Valid() bool {
	return p == ProposalIndividual || p == ProposalCollective
}

// Project is a monitor project proposed by a professor
type Project struct {
	ID                    string        `json:"id" gorm:"primaryKey;type:uuid"`
	Title                 string        `json:"title" gorm:"not null"`
	Description           string        `json:"description"`
	ProfessorID           string        `json:"professorId" gorm:"type:varchar(64);not null;index"`
	DepartmentID          string        `json:"departmentId" gorm:"not null;index"`
	Year                  int           `json:"year" gorm:"not null;index:idx_project_period"`
	Term                  Term          `json:"term" gorm:"type:varchar(12);not null;index:idx_project_period"`
	ProposalType          ProposalType  `json:"proposalType" gorm:"type:varchar(12);not null"`
	ScholarshipsRequested int           `json:"scholarshipsRequested" gorm:"not null"`
	VolunteersRequested   int           `json:"volunteersRequested" gorm:"not null"`
	ScholarshipsGranted   *int          `json:"scholarshipsGranted"`
	Status                ProjectStatus `json:"status" gorm:"type:varchar(32);not null;index"`
	AdminFeedback         *string       `json:"adminFeedback"`
	RevisionMessage       *string       `json:"revisionMessage"`

	ProfessorSignedBy        *string    `json:"professorSignedBy" gorm:"type:varchar(64)"`
	ProfessorSignedAt        *time.Time `json:"professorSignedAt"`
	ProfessorSignatureDigest string     `json:"-"`
	AdminSignedBy            *string    `json:"adminSignedBy" gorm:"type:varchar(64)"`
	AdminSignedAt            *time.Time `json:"adminSignedAt"`
	AdminSignatureDigest     string     `json:"-"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns the primary key
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// SignedBy reports whether the slot for role already carries a signature
func (p Project) SignedBy(role Role) bool {
	switch role {
	case RoleProfessor:
		return p.ProfessorSignedAt != nil
	case RoleAdmin:
		return p.AdminSignedAt != nil
	}
	return false
}

// Granted returns the granted scholarship count, zero while unset
func (p Project) Granted() int {
	if p.ScholarshipsGranted == nil {
		return 0
	}
	return *p.ScholarshipsGranted
}
