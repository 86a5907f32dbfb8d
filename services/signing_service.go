package services

import (
	"context"
	"time"

	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/lib/metrics"
	"github.com/monitoria-simple/lib/renderer"
	"github.com/monitoria-simple/lib/storage"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/repositories"
)

// SigningService records the professor and admin signatures on a project
type SigningService struct {
	store   repositories.Store
	audit   *AuditService
	archive *DocumentArchive
	log     *logger.Logger
	now     func() time.Time
}

// NewSigningService creates a new signing service instance
func NewSigningService(store repositories.Store, audit *AuditService, archive *DocumentArchive, log *logger.Logger) *SigningService {
	return &SigningService{store: store, audit: audit, archive: archive, log: log, now: time.Now}
}

func signatureBlocks(project models.Project) []renderer.Signature {
	var blocks []renderer.Signature
	if project.ProfessorSignedAt != nil && project.ProfessorSignedBy != nil {
		blocks = append(blocks, renderer.Signature{
			Role:     models.RoleProfessor,
			SignerID: *project.ProfessorSignedBy,
			SignedAt: *project.ProfessorSignedAt,
			Digest:   project.ProfessorSignatureDigest,
		})
	}
	if project.AdminSignedAt != nil && project.AdminSignedBy != nil {
		blocks = append(blocks, renderer.Signature{
			Role:     models.RoleAdmin,
			SignerID: *project.AdminSignedBy,
			SignedAt: *project.AdminSignedAt,
			Digest:   project.AdminSignatureDigest,
		})
	}
	return blocks
}

// Sign stamps the slot of role with the caller's signature. The artefact is
// stored first; the slot is re-checked under the project row lock so two
// concurrent signers cannot both win.
func (s *SigningService) Sign(ctx context.Context, actor models.Identity, projectID string, role models.Role, signature []byte) (models.SignedDocument, error) {
	if len(signature) == 0 {
		return models.SignedDocument{}, ValidationError("signature is required")
	}
	if role != models.RoleProfessor && role != models.RoleAdmin {
		return models.SignedDocument{}, ValidationError("signature role must be professor or admin")
	}
	if actor.Role != role {
		return models.SignedDocument{}, ForbiddenError("a %s cannot sign the %s slot", actor.Role, role)
	}

	project, err := s.store.Projects().FindByID(ctx, projectID)
	if err != nil {
		return models.SignedDocument{}, storeError(err, "project", projectID)
	}
	if role == models.RoleProfessor && project.ProfessorID != actor.UserID {
		return models.SignedDocument{}, ForbiddenError("only the owning professor can sign this project")
	}
	if project.SignedBy(role) {
		return models.SignedDocument{}, ConflictError("project %s already carries the %s signature", projectID, role)
	}

	signedAt := s.now().UTC()
	digest := storage.Checksum(signature)
	blocks := append(signatureBlocks(project), renderer.Signature{
		Role:     role,
		SignerID: actor.UserID,
		SignedAt: signedAt,
		Digest:   digest,
	})
	data, err := s.archive.Renderer().RenderProject(renderer.ProjectDocument{Project: project, Signatures: blocks})
	if err != nil {
		return models.SignedDocument{}, InternalError(err, "failed to render signed project")
	}

	kind := models.SignedDocumentKindFor(role)
	ref, checksum, err := s.archive.Put(ctx, data, storage.Metadata{
		ProjectID:   projectID,
		Kind:        string(kind),
		ContentType: "text/plain",
	})
	if err != nil {
		return models.SignedDocument{}, err
	}

	var doc models.SignedDocument
	err = s.store.WithTransaction(ctx, func(tx repositories.Store) error {
		locked, err := tx.Projects().FindForUpdate(ctx, projectID)
		if err != nil {
			return storeError(err, "project", projectID)
		}
		if locked.SignedBy(role) {
			return ConflictError("project %s already carries the %s signature", projectID, role)
		}

		signer := actor.UserID
		doc, err = tx.Documents().Create(ctx, models.SignedDocument{
			ProjectID:  projectID,
			Kind:       kind,
			SignerID:   &signer,
			StorageRef: ref,
			Checksum:   checksum,
		})
		if err != nil {
			return storeError(err, "document", "")
		}

		action := ActionSignProfessor
		if role == models.RoleProfessor {
			locked.ProfessorSignedBy = &signer
			locked.ProfessorSignedAt = &signedAt
			locked.ProfessorSignatureDigest = digest
		} else {
			locked.AdminSignedBy = &signer
			locked.AdminSignedAt = &signedAt
			locked.AdminSignatureDigest = digest
			action = ActionSignAdmin
		}
		if err := tx.Projects().Update(ctx, locked); err != nil {
			return storeError(err, "project", projectID)
		}
		return s.audit.Record(ctx, tx, actor.UserID, action, EntityProject, projectID, map[string]interface{}{
			"documentId": doc.ID,
			"digest":     digest,
		})
	})
	if err != nil {
		if IsKind(err, KindConflict) {
			s.log.FromContext(ctx).
				WithField("project_id", projectID).
				WithField("storage_ref", ref).
				Warn("signature lost the race, stored artefact left unreferenced")
		}
		return models.SignedDocument{}, err
	}

	metrics.RecordSignature(string(kind))
	s.log.FromContext(ctx).
		WithField("project_id", projectID).
		WithField("role", role).
		WithField("document_id", doc.ID).
		Info("project signed")
	return doc, nil
}

// Documents lists the documents stored for a project
func (s *SigningService) Documents(ctx context.Context, actor models.Identity, projectID string) ([]models.SignedDocument, error) {
	project, err := s.store.Projects().FindByID(ctx, projectID)
	if err != nil {
		return nil, storeError(err, "project", projectID)
	}
	if !canManage(actor, project) {
		return nil, ForbiddenError("you don't have permission to access this project")
	}
	docs, err := s.store.Documents().FindByProject(ctx, projectID)
	if err != nil {
		return nil, storeError(err, "document", "")
	}
	return docs, nil
}

// DocumentURL returns a presigned download URL for a stored document
func (s *SigningService) DocumentURL(ctx context.Context, actor models.Identity, documentID string, ttl time.Duration) (string, error) {
	doc, err := s.store.Documents().FindByID(ctx, documentID)
	if err != nil {
		return "", storeError(err, "document", documentID)
	}
	project, err := s.store.Projects().FindByID(ctx, doc.ProjectID)
	if err != nil {
		return "", storeError(err, "project", doc.ProjectID)
	}
	if !canManage(actor, project) {
		return "", ForbiddenError("you don't have permission to access this document")
	}
	return s.archive.URL(ctx, doc.StorageRef, ttl)
}
