package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/monitoria-simple/dto"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/lib/metrics"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/repositories"
)

// Weights of the final score, out of 10
const (
	disciplineWeight = 5
	selectionWeight  = 3
	gpaWeight        = 2
)

// Outcome is the decision taken for one application in a selection round
type Outcome struct {
	Rank        int
	Application models.Application
	Status      models.ApplicationStatus
}

// SelectionService ranks applications and closes selection rounds
type SelectionService struct {
	store   repositories.Store
	audit   *AuditService
	minutes *MinutesService
	log     *logger.Logger
	now     func() time.Time
}

// NewSelectionService creates a new selection service instance
func NewSelectionService(store repositories.Store, audit *AuditService, minutes *MinutesService, log *logger.Logger) *SelectionService {
	return &SelectionService{store: store, audit: audit, minutes: minutes, log: log, now: time.Now}
}

// FinalScore combines the three grades, rounded to two decimals
func FinalScore(disciplineGrade, selectionGrade, gpa float64) float64 {
	raw := (disciplineGrade*disciplineWeight + selectionGrade*selectionWeight + gpa*gpaWeight) / 10
	return math.Round(raw*100) / 100
}

// Rank orders applications by final score descending, unscored last, then
// by submission time, student id and application id. The result depends
// only on those fields.
func Rank(applications []models.Application) []models.Application {
	ranked := append([]models.Application(nil), applications...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		switch {
		case a.FinalScore == nil && b.FinalScore != nil:
			return false
		case a.FinalScore != nil && b.FinalScore == nil:
			return true
		case a.FinalScore != nil && b.FinalScore != nil && *a.FinalScore != *b.FinalScore:
			return *a.FinalScore > *b.FinalScore
		}
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return a.ID < b.ID
	})
	return ranked
}

// assignRanked walks the ranking greedily: scholarship slots go to the
// highest-ranked applicants who accept one, volunteer slots to the next
// ones, and everything else is rejected. Unscored applications are never
// selected.
func assignRanked(project models.Project, applications []models.Application) []Outcome {
	bolsistas := project.Granted()
	voluntarios := project.VolunteersRequested

	ranked := Rank(applications)
	outcomes := make([]Outcome, 0, len(ranked))
	for i, application := range ranked {
		status := models.ApplicationRejectedByProfessor
		switch {
		case application.FinalScore == nil:
		case bolsistas > 0 && application.IntendedSlot.AcceptsBolsista():
			status = models.ApplicationSelectedBolsista
			bolsistas--
		case voluntarios > 0:
			status = models.ApplicationSelectedVoluntario
			voluntarios--
		}
		outcomes = append(outcomes, Outcome{Rank: i + 1, Application: application, Status: status})
	}
	return outcomes
}

// assignDirected applies the professor's explicit choice. Applications not
// chosen are rejected; the outcome list follows the ranking.
func assignDirected(project models.Project, applications []models.Application, bolsistaIDs, voluntarioIDs []string) ([]Outcome, error) {
	chosen := make(map[string]models.ApplicationStatus, len(bolsistaIDs)+len(voluntarioIDs))
	for _, id := range bolsistaIDs {
		if _, dup := chosen[id]; dup {
			return nil, ValidationError("application %s listed twice", id)
		}
		chosen[id] = models.ApplicationSelectedBolsista
	}
	for _, id := range voluntarioIDs {
		if status, dup := chosen[id]; dup {
			if status == models.ApplicationSelectedBolsista {
				return nil, ValidationError("application %s cannot be both bolsista and voluntario", id)
			}
			return nil, ValidationError("application %s listed twice", id)
		}
		chosen[id] = models.ApplicationSelectedVoluntario
	}

	if len(bolsistaIDs) > project.Granted() {
		return nil, CapacityExceededError("%d bolsistas selected, only %d scholarships granted",
			len(bolsistaIDs), project.Granted())
	}
	if len(voluntarioIDs) > project.VolunteersRequested {
		return nil, CapacityExceededError("%d voluntarios selected, only %d volunteer slots requested",
			len(voluntarioIDs), project.VolunteersRequested)
	}

	eligible := make(map[string]bool, len(applications))
	for _, application := range applications {
		eligible[application.ID] = true
	}
	for id := range chosen {
		if !eligible[id] {
			return nil, ValidationError("application %s is not a submitted application of this project and period", id)
		}
	}

	ranked := Rank(applications)
	outcomes := make([]Outcome, 0, len(ranked))
	for i, application := range ranked {
		status, ok := chosen[application.ID]
		if !ok {
			status = models.ApplicationRejectedByProfessor
		}
		outcomes = append(outcomes, Outcome{Rank: i + 1, Application: application, Status: status})
	}
	return outcomes, nil
}

func submittedOnly(applications []models.Application) []models.Application {
	out := make([]models.Application, 0, len(applications))
	for _, application := range applications {
		if application.Status == models.ApplicationSubmitted {
			out = append(out, application)
		}
	}
	return out
}

// roundClosed reports whether a selection round exists for the pair
func roundClosed(ctx context.Context, tx repositories.Store, projectID, periodID string) (bool, error) {
	_, err := tx.Selections().FindRound(ctx, projectID, periodID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repositories.ErrNotFound):
		return false, nil
	}
	return false, storeError(err, "selection round", projectID)
}

// Evaluate records the grades of a submitted application and its final score
func (s *SelectionService) Evaluate(ctx context.Context, actor models.Identity, applicationID string, disciplineGrade, selectionGrade, gpa float64) (models.Application, error) {
	for name, grade := range map[string]float64{"disciplineGrade": disciplineGrade, "selectionGrade": selectionGrade, "gpa": gpa} {
		if math.IsNaN(grade) || grade < 0 || grade > 10 {
			return models.Application{}, ValidationError("%s must be between 0 and 10", name)
		}
	}

	var result models.Application
	err := s.store.WithTransaction(ctx, func(tx repositories.Store) error {
		application, err := tx.Applications().FindByID(ctx, applicationID)
		if err != nil {
			return storeError(err, "application", applicationID)
		}
		project, err := tx.Projects().FindForUpdate(ctx, application.ProjectID)
		if err != nil {
			return storeError(err, "project", application.ProjectID)
		}
		if !canManage(actor, project) {
			return ForbiddenError("you don't have permission to evaluate this application")
		}
		if application.Status != models.ApplicationSubmitted {
			return StateTransitionError("application %s is no longer open for evaluation", applicationID)
		}
		closed, err := roundClosed(ctx, tx, application.ProjectID, application.PeriodID)
		if err != nil {
			return err
		}
		if closed {
			return ConflictError("selection for project %s is already closed", application.ProjectID)
		}

		score := FinalScore(disciplineGrade, selectionGrade, gpa)
		application.DisciplineGrade = &disciplineGrade
		application.SelectionGrade = &selectionGrade
		application.GPA = &gpa
		application.FinalScore = &score
		if err := tx.Applications().Update(ctx, application); err != nil {
			return storeError(err, "application", applicationID)
		}
		result = application
		return s.audit.Record(ctx, tx, actor.UserID, ActionEvaluate, EntityApplication, applicationID, map[string]interface{}{
			"finalScore": score,
		})
	})
	if err != nil {
		return models.Application{}, err
	}
	return result, nil
}

// Preview shows the ranking and the outcome ranked mode would assign,
// without writing anything
func (s *SelectionService) Preview(ctx context.Context, actor models.Identity, projectID, periodID string) (dto.SelectionPreview, error) {
	preview := dto.SelectionPreview{ProjectID: projectID, PeriodID: periodID}

	project, err := s.store.Projects().FindByID(ctx, projectID)
	if err != nil {
		return preview, storeError(err, "project", projectID)
	}
	if !canManage(actor, project) {
		return preview, ForbiddenError("you don't have permission to access this project")
	}
	if _, err := s.store.Periods().FindByID(ctx, periodID); err != nil {
		return preview, storeError(err, "period", periodID)
	}
	closed, err := roundClosed(ctx, s.store, projectID, periodID)
	if err != nil {
		return preview, err
	}
	applications, err := s.store.Applications().FindByProjectPeriod(ctx, projectID, periodID)
	if err != nil {
		return preview, storeError(err, "application", "")
	}

	preview.ScholarshipsGranted = project.Granted()
	preview.VolunteersRequested = project.VolunteersRequested
	preview.Closed = closed
	outcomes := assignRanked(project, submittedOnly(applications))
	preview.Entries = make([]dto.PreviewEntry, 0, len(outcomes))
	for _, o := range outcomes {
		preview.Entries = append(preview.Entries, dto.PreviewEntry{
			Rank:          o.Rank,
			ApplicationID: o.Application.ID,
			StudentID:     o.Application.StudentID,
			IntendedSlot:  o.Application.IntendedSlot,
			Score:         o.Application.FinalScore,
			Outcome:       o.Status,
		})
	}
	return preview, nil
}

// SelectRanked closes the round using the deterministic ranking
func (s *SelectionService) SelectRanked(ctx context.Context, actor models.Identity, projectID, periodID string) (models.Minutes, error) {
	return s.commit(ctx, actor, projectID, periodID, models.SelectionRanked,
		func(project models.Project, applications []models.Application) ([]Outcome, error) {
			return assignRanked(project, applications), nil
		})
}

// SelectDirected closes the round with the professor's explicit choice
func (s *SelectionService) SelectDirected(ctx context.Context, actor models.Identity, projectID, periodID string, bolsistaIDs, voluntarioIDs []string) (models.Minutes, error) {
	return s.commit(ctx, actor, projectID, periodID, models.SelectionDirected,
		func(project models.Project, applications []models.Application) ([]Outcome, error) {
			return assignDirected(project, applications, bolsistaIDs, voluntarioIDs)
		})
}

// commit runs one selection round atomically: it locks the project, refuses
// a closed round, writes every outcome, closes the round, records one
// batched audit entry and builds the minutes.
func (s *SelectionService) commit(ctx context.Context, actor models.Identity, projectID, periodID string, mode models.SelectionMode, decide func(models.Project, []models.Application) ([]Outcome, error)) (models.Minutes, error) {
	var minutes models.Minutes
	err := s.store.WithTransaction(ctx, func(tx repositories.Store) error {
		project, err := tx.Projects().FindForUpdate(ctx, projectID)
		if err != nil {
			return storeError(err, "project", projectID)
		}
		if !canManage(actor, project) {
			return ForbiddenError("you don't have permission to select for this project")
		}
		if project.Status != models.ProjectStatusApproved {
			return StateTransitionError("project %s is not approved", projectID)
		}
		period, err := tx.Periods().FindByID(ctx, periodID)
		if err != nil {
			return storeError(err, "period", periodID)
		}

		closed, err := roundClosed(ctx, tx, projectID, periodID)
		if err != nil {
			return err
		}
		if closed {
			return ConflictError("selection for project %s in period %s is already closed", projectID, period.ID)
		}

		applications, err := tx.Applications().FindByProjectPeriod(ctx, projectID, periodID)
		if err != nil {
			return storeError(err, "application", "")
		}
		outcomes, err := decide(project, submittedOnly(applications))
		if err != nil {
			return err
		}

		decidedAt := s.now().UTC()
		summary := map[models.ApplicationStatus][]string{}
		for i := range outcomes {
			application := outcomes[i].Application
			if !application.Status.CanTransition(outcomes[i].Status) {
				return StateTransitionError("application %s cannot move from %s to %s",
					application.ID, application.Status, outcomes[i].Status)
			}
			application.Status = outcomes[i].Status
			application.DecidedAt = &decidedAt
			switch application.Status {
			case models.ApplicationSelectedBolsista:
				slot := models.SlotBolsista
				application.AssignedSlot = &slot
			case models.ApplicationSelectedVoluntario:
				slot := models.SlotVoluntario
				application.AssignedSlot = &slot
			}
			if err := tx.Applications().Update(ctx, application); err != nil {
				return storeError(err, "application", application.ID)
			}
			outcomes[i].Application = application
			summary[application.Status] = append(summary[application.Status], application.ID)
		}

		if _, err := tx.Selections().CreateRound(ctx, models.SelectionRound{
			ProjectID: projectID,
			PeriodID:  periodID,
			Mode:      mode,
			ClosedBy:  actor.UserID,
			ClosedAt:  decidedAt,
		}); err != nil {
			return storeError(err, "selection round", projectID)
		}

		if err := s.audit.Record(ctx, tx, actor.UserID, ActionSelect, EntityProject, projectID, map[string]interface{}{
			"periodId":           periodID,
			"mode":               mode,
			"selectedBolsista":   summary[models.ApplicationSelectedBolsista],
			"selectedVoluntario": summary[models.ApplicationSelectedVoluntario],
			"rejected":           summary[models.ApplicationRejectedByProfessor],
		}); err != nil {
			return err
		}

		minutes, err = s.minutes.Build(ctx, tx, actor, project, periodID, mode, outcomes)
		return err
	})
	if err != nil {
		metrics.RecordSelection(string(mode), string(KindOf(err)))
		return models.Minutes{}, err
	}

	metrics.RecordSelection(string(mode), "ok")
	s.log.FromContext(ctx).
		WithField("project_id", projectID).
		WithField("period_id", periodID).
		WithField("mode", mode).
		WithField("minutes_id", minutes.ID).
		Info("selection closed")
	return minutes, nil
}
