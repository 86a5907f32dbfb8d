package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/monitoria-simple/dto"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/repositories"
	"gorm.io/datatypes"
)

// Audit actions
const (
	ActionCreate          = "CREATE"
	ActionUpdate          = "UPDATE"
	ActionSubmit          = "SUBMIT"
	ActionApprove         = "APPROVE"
	ActionReject          = "REJECT"
	ActionRequestRevision = "REQUEST_REVISION"
	ActionAwaitSignature  = "AWAIT_SIGNATURE"
	ActionResume          = "RESUME"
	ActionArchive         = "ARCHIVE"
	ActionStoreDocument   = "STORE_DOCUMENT"
	ActionSignProfessor   = "SIGN_PROFESSOR"
	ActionSignAdmin       = "SIGN_ADMIN"
	ActionApply           = "APPLY"
	ActionConfirm         = "CONFIRM"
	ActionDecline         = "DECLINE"
	ActionEvaluate        = "EVALUATE"
	ActionSelect          = "SELECT"
	ActionAnnotateMinutes = "ANNOTATE_MINUTES"
	ActionSignMinutes     = "SIGN_MINUTES"
	ActionPublish         = "PUBLISH"
)

// Audited entity types
const (
	EntityProject     = "project"
	EntityPeriod      = "period"
	EntityApplication = "application"
	EntityMinutes     = "minutes"
)

// AuditService writes and reads the append-only audit log
type AuditService struct {
	store repositories.Store
	log   *logger.Logger
	now   func() time.Time
}

// NewAuditService creates a new audit service instance
func NewAuditService(store repositories.Store, log *logger.Logger) *AuditService {
	return &AuditService{store: store, log: log, now: time.Now}
}

// Record appends an entry through tx so it commits or rolls back with the
// change it describes
func (s *AuditService) Record(ctx context.Context, tx repositories.Store, actorID, action, entityType, entityID string, metadata map[string]interface{}) error {
	var raw datatypes.JSON
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return InternalError(err, "failed to encode audit metadata")
		}
		raw = datatypes.JSON(b)
	}

	entry := models.AuditEntry{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Timestamp:  s.now().UTC(),
		Metadata:   raw,
	}
	if _, err := tx.Audit().Append(ctx, entry); err != nil {
		return storeError(err, "audit entry", entityID)
	}
	return nil
}

// List returns audit entries newest first; admins only
func (s *AuditService) List(ctx context.Context, actor models.Identity, filter dto.AuditFilter) (dto.AuditListResponse, error) {
	var response dto.AuditListResponse
	if !actor.IsAdmin() {
		return response, ForbiddenError("only administrators can read the audit log")
	}

	page, pageSize := repositories.NormalizePage(filter.Page, filter.PageSize)
	entries, totalCount, err := s.store.Audit().List(ctx, repositories.AuditFilter{
		EntityType: filter.EntityType,
		EntityID:   filter.EntityID,
		ActorID:    filter.ActorID,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return response, storeError(err, "audit entry", "")
	}

	response = dto.AuditListResponse{
		Entries:    entries,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(totalCount, pageSize),
	}
	return response, nil
}

func totalPages(totalCount int64, pageSize int) int {
	pages := int(totalCount) / pageSize
	if int(totalCount)%pageSize > 0 {
		pages++
	}
	return pages
}
