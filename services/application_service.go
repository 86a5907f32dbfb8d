package services

import (
	"context"
	"time"

	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/repositories"
)

// ApplicationService handles student applications to approved projects
type ApplicationService struct {
	store repositories.Store
	audit *AuditService
	log   *logger.Logger
	now   func() time.Time
}

// NewApplicationService creates a new application service instance
func NewApplicationService(store repositories.Store, audit *AuditService, log *logger.Logger) *ApplicationService {
	return &ApplicationService{store: store, audit: audit, log: log, now: time.Now}
}

// Apply registers the calling student's candidacy to a project in an open period
func (s *ApplicationService) Apply(ctx context.Context, actor models.Identity, projectID, periodID string, slot models.SlotType) (models.Application, error) {
	if actor.Role != models.RoleStudent {
		return models.Application{}, ForbiddenError("only students can apply to projects")
	}
	if !slot.Valid() {
		return models.Application{}, ValidationError("invalid slot type %q", slot)
	}

	var created models.Application
	err := s.store.WithTransaction(ctx, func(tx repositories.Store) error {
		project, err := tx.Projects().FindForUpdate(ctx, projectID)
		if err != nil {
			return storeError(err, "project", projectID)
		}
		if project.Status != models.ProjectStatusApproved {
			return StateTransitionError("project %s is not open for applications", projectID)
		}

		period, err := tx.Periods().FindByID(ctx, periodID)
		if err != nil {
			return storeError(err, "period", periodID)
		}
		now := s.now()
		if !period.IsOpen(now) {
			return StateTransitionError("enrollment period %s is not open", periodID)
		}
		if period.Year != project.Year || period.Term != project.Term {
			return ValidationError("period %s does not match the project's %d/%s", periodID, project.Year, project.Term)
		}
		closed, err := roundClosed(ctx, tx, projectID, periodID)
		if err != nil {
			return err
		}
		if closed {
			return ConflictError("selection for project %s in period %s is already closed", projectID, periodID)
		}

		switch slot {
		case models.SlotBolsista:
			if project.Granted() == 0 {
				return ValidationError("project %s offers no scholarship slots", projectID)
			}
		case models.SlotVoluntario:
			if project.VolunteersRequested == 0 {
				return ValidationError("project %s offers no volunteer slots", projectID)
			}
		case models.SlotAny:
			if project.Granted() == 0 && project.VolunteersRequested == 0 {
				return ValidationError("project %s offers no slots", projectID)
			}
		}

		exists, err := tx.Applications().Exists(ctx, projectID, actor.UserID, periodID)
		if err != nil {
			return storeError(err, "application", "")
		}
		if exists {
			return ConflictError("student already applied to project %s in period %s", projectID, periodID)
		}

		created, err = tx.Applications().Create(ctx, models.Application{
			ProjectID:    projectID,
			StudentID:    actor.UserID,
			PeriodID:     periodID,
			IntendedSlot: slot,
			Status:       models.ApplicationSubmitted,
			SubmittedAt:  now.UTC(),
		})
		if err != nil {
			return storeError(err, "application", projectID+"/"+actor.UserID)
		}
		return s.audit.Record(ctx, tx, actor.UserID, ActionApply, EntityApplication, created.ID, map[string]interface{}{
			"projectId":    projectID,
			"periodId":     periodID,
			"intendedSlot": slot,
		})
	})
	if err != nil {
		return models.Application{}, err
	}

	s.log.FromContext(ctx).
		WithField("application_id", created.ID).
		WithField("project_id", projectID).
		WithField("period_id", periodID).
		Info("application submitted")
	return created, nil
}

// Confirm accepts a selected slot; applicant only
func (s *ApplicationService) Confirm(ctx context.Context, actor models.Identity, applicationID string) (models.Application, error) {
	return s.respond(ctx, actor, applicationID, models.ApplicationConfirmed, ActionConfirm)
}

// Decline refuses a selected slot; applicant only
func (s *ApplicationService) Decline(ctx context.Context, actor models.Identity, applicationID string) (models.Application, error) {
	return s.respond(ctx, actor, applicationID, models.ApplicationDeclinedByStudent, ActionDecline)
}

func (s *ApplicationService) respond(ctx context.Context, actor models.Identity, applicationID string, next models.ApplicationStatus, action string) (models.Application, error) {
	var result models.Application
	err := s.store.WithTransaction(ctx, func(tx repositories.Store) error {
		application, err := tx.Applications().FindByID(ctx, applicationID)
		if err != nil {
			return storeError(err, "application", applicationID)
		}
		if application.StudentID != actor.UserID {
			return ForbiddenError("only the applicant can answer this selection")
		}
		if !application.Status.IsSelected() || !application.Status.CanTransition(next) {
			return StateTransitionError("application %s cannot move from %s to %s", applicationID, application.Status, next)
		}

		if next == models.ApplicationConfirmed && application.AssignedSlot != nil && *application.AssignedSlot == models.SlotBolsista {
			// serialises confirmations of the same student within a period
			if _, err := tx.Periods().FindForUpdate(ctx, application.PeriodID); err != nil {
				return storeError(err, "period", application.PeriodID)
			}
			held, err := tx.Applications().CountConfirmedSlot(ctx, actor.UserID, application.PeriodID, models.SlotBolsista)
			if err != nil {
				return storeError(err, "application", applicationID)
			}
			if held > 0 {
				return ConflictError("student already holds a scholarship in this period")
			}
		}

		decidedAt := s.now().UTC()
		application.Status = next
		application.DecidedAt = &decidedAt
		if err := tx.Applications().Update(ctx, application); err != nil {
			return storeError(err, "application", applicationID)
		}
		result = application
		return s.audit.Record(ctx, tx, actor.UserID, action, EntityApplication, applicationID, map[string]interface{}{
			"status": next,
		})
	})
	if err != nil {
		return models.Application{}, err
	}
	return result, nil
}

// Get retrieves an application visible to actor
func (s *ApplicationService) Get(ctx context.Context, actor models.Identity, applicationID string) (models.Application, error) {
	application, err := s.store.Applications().FindByID(ctx, applicationID)
	if err != nil {
		return models.Application{}, storeError(err, "application", applicationID)
	}
	if application.StudentID == actor.UserID {
		return application, nil
	}
	project, err := s.store.Projects().FindByID(ctx, application.ProjectID)
	if err != nil {
		return models.Application{}, storeError(err, "project", application.ProjectID)
	}
	if !canManage(actor, project) {
		return models.Application{}, ForbiddenError("you don't have permission to access this application")
	}
	return application, nil
}

// ListForProject lists a project's applications, optionally in one period
func (s *ApplicationService) ListForProject(ctx context.Context, actor models.Identity, projectID, periodID string) ([]models.Application, error) {
	project, err := s.store.Projects().FindByID(ctx, projectID)
	if err != nil {
		return nil, storeError(err, "project", projectID)
	}
	if !canManage(actor, project) {
		return nil, ForbiddenError("you don't have permission to access this project")
	}

	var applications []models.Application
	if periodID != "" {
		applications, err = s.store.Applications().FindByProjectPeriod(ctx, projectID, periodID)
	} else {
		applications, err = s.store.Applications().FindByProject(ctx, projectID)
	}
	if err != nil {
		return nil, storeError(err, "application", "")
	}
	return applications, nil
}

// ListForStudent lists the calling student's applications
func (s *ApplicationService) ListForStudent(ctx context.Context, actor models.Identity) ([]models.Application, error) {
	applications, err := s.store.Applications().FindByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, storeError(err, "application", "")
	}
	return applications, nil
}
