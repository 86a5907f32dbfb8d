package services

import (
	"context"
	"strings"

	"github.com/monitoria-simple/dto"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/lib/metrics"
	"github.com/monitoria-simple/lib/renderer"
	"github.com/monitoria-simple/lib/storage"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/repositories"
)

// ProjectService handles business logic for projects
type ProjectService struct {
	store      repositories.Store
	audit      *AuditService
	allocation *AllocationService
	archive    *DocumentArchive
	log        *logger.Logger
}

// NewProjectService creates a new project service instance
func NewProjectService(store repositories.Store, audit *AuditService, allocation *AllocationService, archive *DocumentArchive, log *logger.Logger) *ProjectService {
	return &ProjectService{
		store:      store,
		audit:      audit,
		allocation: allocation,
		archive:    archive,
		log:        log,
	}
}

// canManage reports whether actor may act on project as its owner or as an admin
func canManage(actor models.Identity, project models.Project) bool {
	return actor.IsAdmin() || (actor.Role == models.RoleProfessor && project.ProfessorID == actor.UserID)
}

func validateProjectRequest(req dto.ProjectRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return ValidationError("title is required")
	}
	if strings.TrimSpace(req.DepartmentID) == "" {
		return ValidationError("departmentId is required")
	}
	if req.Year <= 0 {
		return ValidationError("year is required")
	}
	if !models.Term(req.Term).Valid() {
		return ValidationError("invalid term %q", req.Term)
	}
	if !models.ProposalType(req.ProposalType).Valid() {
		return ValidationError("invalid proposal type %q", req.ProposalType)
	}
	if req.ScholarshipsRequested < 0 || req.VolunteersRequested < 0 {
		return ValidationError("requested slot counts must not be negative")
	}
	return nil
}

// transition applies next to project or fails with a state transition error
func transition(project *models.Project, next models.ProjectStatus) error {
	if !project.Status.CanTransition(next) {
		return StateTransitionError("project %s cannot move from %s to %s", project.ID, project.Status, next)
	}
	project.Status = next
	return nil
}

// mutate runs fn against the locked project inside one transaction and
// records the audit entry fn returns
func (s *ProjectService) mutate(ctx context.Context, actor models.Identity, projectID, action string, fn func(tx repositories.Store, project *models.Project) (map[string]interface{}, error)) (models.Project, error) {
	var result models.Project
	var previous models.ProjectStatus
	err := s.store.WithTransaction(ctx, func(tx repositories.Store) error {
		project, err := tx.Projects().FindForUpdate(ctx, projectID)
		if err != nil {
			return storeError(err, "project", projectID)
		}
		previous = project.Status

		metadata, err := fn(tx, &project)
		if err != nil {
			return err
		}
		if err := tx.Projects().Update(ctx, project); err != nil {
			return storeError(err, "project", projectID)
		}
		result = project
		return s.audit.Record(ctx, tx, actor.UserID, action, EntityProject, projectID, metadata)
	})
	if err != nil {
		return models.Project{}, err
	}

	if result.Status != previous {
		metrics.RecordTransition(string(result.Status))
	}
	s.log.FromContext(ctx).
		WithField("project_id", projectID).
		WithField("actor_id", actor.UserID).
		WithField("action", action).
		WithField("status", result.Status).
		Info("project updated")
	return result, nil
}

// Create registers a new DRAFT project owned by the calling professor
func (s *ProjectService) Create(ctx context.Context, actor models.Identity, req dto.ProjectRequest) (models.Project, error) {
	if actor.Role != models.RoleProfessor {
		return models.Project{}, ForbiddenError("only professors can propose projects")
	}
	if err := validateProjectRequest(req); err != nil {
		return models.Project{}, err
	}

	var created models.Project
	err := s.store.WithTransaction(ctx, func(tx repositories.Store) error {
		var err error
		created, err = tx.Projects().Create(ctx, models.Project{
			Title:                 strings.TrimSpace(req.Title),
			Description:           req.Description,
			ProfessorID:           actor.UserID,
			DepartmentID:          req.DepartmentID,
			Year:                  req.Year,
			Term:                  models.Term(req.Term),
			ProposalType:          models.ProposalType(req.ProposalType),
			ScholarshipsRequested: req.ScholarshipsRequested,
			VolunteersRequested:   req.VolunteersRequested,
			Status:                models.ProjectStatusDraft,
		})
		if err != nil {
			return storeError(err, "project", "")
		}
		return s.audit.Record(ctx, tx, actor.UserID, ActionCreate, EntityProject, created.ID, map[string]interface{}{
			"title": created.Title,
		})
	})
	if err != nil {
		return models.Project{}, err
	}
	return created, nil
}

// UpdateDraft edits a DRAFT project; owner only
func (s *ProjectService) UpdateDraft(ctx context.Context, actor models.Identity, projectID string, req dto.ProjectRequest) (models.Project, error) {
	if err := validateProjectRequest(req); err != nil {
		return models.Project{}, err
	}
	return s.mutate(ctx, actor, projectID, ActionUpdate, func(tx repositories.Store, project *models.Project) (map[string]interface{}, error) {
		if project.ProfessorID != actor.UserID {
			return nil, ForbiddenError("only the owning professor can edit this project")
		}
		if project.Status != models.ProjectStatusDraft {
			return nil, StateTransitionError("project %s can only be edited while DRAFT", project.ID)
		}
		project.Title = strings.TrimSpace(req.Title)
		project.Description = req.Description
		project.DepartmentID = req.DepartmentID
		project.Year = req.Year
		project.Term = models.Term(req.Term)
		project.ProposalType = models.ProposalType(req.ProposalType)
		project.ScholarshipsRequested = req.ScholarshipsRequested
		project.VolunteersRequested = req.VolunteersRequested
		return nil, nil
	})
}

// Submit moves a DRAFT project to SUBMITTED; owner only. The rendered
// original is archived after commit.
func (s *ProjectService) Submit(ctx context.Context, actor models.Identity, projectID string) (models.Project, error) {
	project, err := s.mutate(ctx, actor, projectID, ActionSubmit, func(tx repositories.Store, project *models.Project) (map[string]interface{}, error) {
		if actor.Role != models.RoleProfessor || project.ProfessorID != actor.UserID {
			return nil, ForbiddenError("only the owning professor can submit this project")
		}
		if project.Status != models.ProjectStatusDraft {
			return nil, StateTransitionError("project %s can only be submitted from DRAFT, current status %s", project.ID, project.Status)
		}
		project.RevisionMessage = nil
		return nil, transition(project, models.ProjectStatusSubmitted)
	})
	if err != nil {
		return models.Project{}, err
	}

	s.archiveOriginal(ctx, actor, project)
	return project, nil
}

// archiveOriginal stores the submitted proposal. Failures are logged; the
// submission itself is already durable.
func (s *ProjectService) archiveOriginal(ctx context.Context, actor models.Identity, project models.Project) {
	if s.archive == nil {
		return
	}
	entry := s.log.FromContext(ctx).WithField("project_id", project.ID)

	data, err := s.archive.Renderer().RenderProject(renderer.ProjectDocument{Project: project})
	if err != nil {
		entry.WithError(err).Error("failed to render project original")
		return
	}
	ref, checksum, err := s.archive.Put(ctx, data, storage.Metadata{
		ProjectID:   project.ID,
		Kind:        string(models.DocumentOriginal),
		ContentType: "text/plain",
	})
	if err != nil {
		entry.WithError(err).Error("failed to store project original")
		return
	}

	err = s.store.WithTransaction(ctx, func(tx repositories.Store) error {
		doc, err := tx.Documents().Create(ctx, models.SignedDocument{
			ProjectID:  project.ID,
			Kind:       models.DocumentOriginal,
			StorageRef: ref,
			Checksum:   checksum,
		})
		if err != nil {
			return storeError(err, "document", "")
		}
		return s.audit.Record(ctx, tx, actor.UserID, ActionStoreDocument, EntityProject, project.ID, map[string]interface{}{
			"documentId": doc.ID,
			"kind":       doc.Kind,
		})
	})
	if err != nil {
		entry.WithError(err).Error("failed to record project original")
	}
}

// Approve moves a SUBMITTED project to APPROVED and grants scholarships;
// admins only. The grant is validated in the same transaction.
func (s *ProjectService) Approve(ctx context.Context, actor models.Identity, projectID string, granted int, feedback *string) (models.Project, error) {
	if !actor.IsAdmin() {
		return models.Project{}, ForbiddenError("only administrators can approve projects")
	}
	return s.mutate(ctx, actor, projectID, ActionApprove, func(tx repositories.Store, project *models.Project) (map[string]interface{}, error) {
		if project.Status != models.ProjectStatusSubmitted {
			return nil, StateTransitionError("project %s can only be approved from SUBMITTED, current status %s", project.ID, project.Status)
		}
		if project.ScholarshipsGranted != nil {
			return nil, ConflictError("project %s already has a scholarship grant", project.ID)
		}
		if err := s.allocation.CheckGrant(ctx, tx, *project, granted); err != nil {
			return nil, err
		}
		if err := transition(project, models.ProjectStatusApproved); err != nil {
			return nil, err
		}
		project.ScholarshipsGranted = &granted
		project.AdminFeedback = feedback
		metadata := map[string]interface{}{"scholarshipsGranted": granted}
		if feedback != nil {
			metadata["feedback"] = *feedback
		}
		return metadata, nil
	})
}

// Reject moves a SUBMITTED project to REJECTED; admins only
func (s *ProjectService) Reject(ctx context.Context, actor models.Identity, projectID, reason string) (models.Project, error) {
	if !actor.IsAdmin() {
		return models.Project{}, ForbiddenError("only administrators can reject projects")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.Project{}, ValidationError("a rejection reason is required")
	}
	return s.mutate(ctx, actor, projectID, ActionReject, func(tx repositories.Store, project *models.Project) (map[string]interface{}, error) {
		if project.Status != models.ProjectStatusSubmitted {
			return nil, StateTransitionError("project %s can only be rejected from SUBMITTED, current status %s", project.ID, project.Status)
		}
		if err := transition(project, models.ProjectStatusRejected); err != nil {
			return nil, err
		}
		project.AdminFeedback = &reason
		return map[string]interface{}{"reason": reason}, nil
	})
}

// RequestRevision sends a SUBMITTED project back to DRAFT; admins only
func (s *ProjectService) RequestRevision(ctx context.Context, actor models.Identity, projectID, message string) (models.Project, error) {
	if !actor.IsAdmin() {
		return models.Project{}, ForbiddenError("only administrators can request revisions")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return models.Project{}, ValidationError("a revision message is required")
	}
	return s.mutate(ctx, actor, projectID, ActionRequestRevision, func(tx repositories.Store, project *models.Project) (map[string]interface{}, error) {
		if project.Status != models.ProjectStatusSubmitted {
			return nil, StateTransitionError("project %s can only be sent back from SUBMITTED, current status %s", project.ID, project.Status)
		}
		if err := transition(project, models.ProjectStatusDraft); err != nil {
			return nil, err
		}
		project.RevisionMessage = &message
		return map[string]interface{}{"message": message}, nil
	})
}

// AwaitSignature parks a SUBMITTED project until the slot of role is signed;
// admins only
func (s *ProjectService) AwaitSignature(ctx context.Context, actor models.Identity, projectID string, role models.Role) (models.Project, error) {
	if !actor.IsAdmin() {
		return models.Project{}, ForbiddenError("only administrators can request signatures")
	}
	var next models.ProjectStatus
	switch role {
	case models.RoleProfessor:
		next = models.ProjectStatusPendingProfessorSignature
	case models.RoleAdmin:
		next = models.ProjectStatusPendingAdminSignature
	default:
		return models.Project{}, ValidationError("signature role must be professor or admin")
	}
	return s.mutate(ctx, actor, projectID, ActionAwaitSignature, func(tx repositories.Store, project *models.Project) (map[string]interface{}, error) {
		if project.SignedBy(role) {
			return nil, ConflictError("project %s already carries the %s signature", project.ID, role)
		}
		if err := transition(project, next); err != nil {
			return nil, err
		}
		return map[string]interface{}{"role": role}, nil
	})
}

// ResumeAfterSignature returns a parked project to SUBMITTED once the
// awaited slot is signed
func (s *ProjectService) ResumeAfterSignature(ctx context.Context, actor models.Identity, projectID string) (models.Project, error) {
	return s.mutate(ctx, actor, projectID, ActionResume, func(tx repositories.Store, project *models.Project) (map[string]interface{}, error) {
		if !canManage(actor, *project) {
			return nil, ForbiddenError("you don't have permission to resume this project")
		}
		var awaited models.Role
		switch project.Status {
		case models.ProjectStatusPendingProfessorSignature:
			awaited = models.RoleProfessor
		case models.ProjectStatusPendingAdminSignature:
			awaited = models.RoleAdmin
		default:
			return nil, StateTransitionError("project %s is not awaiting a signature", project.ID)
		}
		if !project.SignedBy(awaited) {
			return nil, StateTransitionError("project %s still awaits the %s signature", project.ID, awaited)
		}
		return map[string]interface{}{"role": awaited}, transition(project, models.ProjectStatusSubmitted)
	})
}

// Archive soft-deletes a project. Owners may archive drafts, admins any project.
func (s *ProjectService) Archive(ctx context.Context, actor models.Identity, projectID string) error {
	err := s.store.WithTransaction(ctx, func(tx repositories.Store) error {
		project, err := tx.Projects().FindForUpdate(ctx, projectID)
		if err != nil {
			return storeError(err, "project", projectID)
		}
		if !actor.IsAdmin() {
			if actor.Role != models.RoleProfessor || project.ProfessorID != actor.UserID {
				return ForbiddenError("you don't have permission to archive this project")
			}
			if project.Status != models.ProjectStatusDraft {
				return StateTransitionError("only DRAFT projects can be archived by their owner")
			}
		}
		if err := tx.Projects().Delete(ctx, projectID); err != nil {
			return storeError(err, "project", projectID)
		}
		return s.audit.Record(ctx, tx, actor.UserID, ActionArchive, EntityProject, projectID, map[string]interface{}{
			"status": project.Status,
		})
	})
	if err != nil {
		return err
	}
	s.log.FromContext(ctx).WithField("project_id", projectID).Info("project archived")
	return nil
}

// Get retrieves a project by ID.
// Access control: admins see any project, professors their own, students
// only approved projects.
func (s *ProjectService) Get(ctx context.Context, actor models.Identity, projectID string) (models.Project, error) {
	project, err := s.store.Projects().FindByID(ctx, projectID)
	if err != nil {
		return models.Project{}, storeError(err, "project", projectID)
	}
	switch {
	case actor.IsAdmin():
	case actor.Role == models.RoleProfessor && project.ProfessorID == actor.UserID:
	case actor.Role == models.RoleStudent && project.Status == models.ProjectStatusApproved:
	default:
		return models.Project{}, ForbiddenError("you don't have permission to access this project")
	}
	return project, nil
}

// List retrieves projects with pagination and filtering, scoped by role
func (s *ProjectService) List(ctx context.Context, actor models.Identity, filter dto.ProjectFilter) (dto.ProjectListResponse, error) {
	var response dto.ProjectListResponse

	page, pageSize := repositories.NormalizePage(filter.Page, filter.PageSize)
	query := repositories.ProjectFilter{
		Status:   models.ProjectStatus(filter.Status),
		Year:     filter.Year,
		Term:     models.Term(filter.Term),
		Search:   strings.TrimSpace(filter.Search),
		Page:     page,
		PageSize: pageSize,
	}
	if query.Status != "" && !query.Status.Valid() {
		return response, ValidationError("invalid status %q", filter.Status)
	}
	if query.Term != "" && !query.Term.Valid() {
		return response, ValidationError("invalid term %q", filter.Term)
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleProfessor:
		query.ProfessorID = actor.UserID
	case models.RoleStudent:
		query.Status = models.ProjectStatusApproved
	default:
		return response, ForbiddenError("unknown role %q", actor.Role)
	}

	projects, totalCount, err := s.store.Projects().FindWithPagination(ctx, query)
	if err != nil {
		return response, storeError(err, "project", "")
	}

	response = dto.ProjectListResponse{
		Projects:   projects,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(totalCount, pageSize),
	}
	return response, nil
}
