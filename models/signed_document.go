package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentKind identifies what a stored artefact is
type DocumentKind string

const (
	DocumentOriginal         DocumentKind = "ORIGINAL"
	DocumentProfessorSigned  DocumentKind = "PROFESSOR_SIGNED"
	DocumentAdminSigned      DocumentKind = "ADMIN_SIGNED"
	DocumentSelectionMinutes DocumentKind = "SELECTION_MINUTES"
)

// SignedDocumentKindFor returns the document kind produced when role signs a project
func SignedDocumentKindFor(role Role) DocumentKind {
	if role == RoleAdmin {
		return DocumentAdminSigned
	}
	return DocumentProfessorSigned
}

// SignedDocument is an append-only pointer to an artefact in the document store
type SignedDocument struct {
	ID         string       `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID  string       `json:"projectId" gorm:"type:uuid;not null;index"`
	Kind       DocumentKind `json:"kind" gorm:"type:varchar(24);not null"`
	SignerID   *string      `json:"signerId" gorm:"type:varchar(64)"`
	StorageRef string       `json:"storageRef" gorm:"not null"`
	Checksum   string       `json:"checksum" gorm:"not null"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// BeforeCreate assigns the primary key
func (d *SignedDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
