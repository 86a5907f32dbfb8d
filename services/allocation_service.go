package services

import (
	"context"
	"errors"

	"github.com/monitoria-simple/dto"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/repositories"
)

// AllocationService validates scholarship grants against project requests
// and the central pool of the enrollment period
type AllocationService struct {
	store repositories.Store
	log   *logger.Logger
}

// NewAllocationService creates a new allocation service instance
func NewAllocationService(store repositories.Store, log *logger.Logger) *AllocationService {
	return &AllocationService{store: store, log: log}
}

// CheckGrant validates granted for project inside tx. When a period exists
// for the project's year/term its row is locked, so concurrent approvals in
// the same period observe each other's grants.
func (s *AllocationService) CheckGrant(ctx context.Context, tx repositories.Store, project models.Project, granted int) error {
	if granted < 0 {
		return ValidationError("scholarshipsGranted must not be negative")
	}
	if granted > project.ScholarshipsRequested {
		return CapacityExceededError("cannot grant %d scholarships, project requested %d",
			granted, project.ScholarshipsRequested)
	}

	period, err := tx.Periods().FindByYearTerm(ctx, project.Year, project.Term)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeError(err, "period", "")
	}

	period, err = tx.Periods().FindForUpdate(ctx, period.ID)
	if err != nil {
		return storeError(err, "period", period.ID)
	}
	if period.ScholarshipPool <= 0 {
		return nil
	}

	used, err := tx.Projects().SumGranted(ctx, project.Year, project.Term, project.ID)
	if err != nil {
		return storeError(err, "project", project.ID)
	}
	if used+granted > period.ScholarshipPool {
		return CapacityExceededError("scholarship pool exhausted: %d of %d already granted, %d requested",
			used, period.ScholarshipPool, granted)
	}

	s.log.FromContext(ctx).
		WithField("project_id", project.ID).
		WithField("period_id", period.ID).
		WithField("granted", granted).
		WithField("pool_used", used).
		Debug("scholarship grant fits pool")
	return nil
}

// Summary reports pool usage for a year/term; admins only
func (s *AllocationService) Summary(ctx context.Context, actor models.Identity, year int, term models.Term) (dto.AllocationSummary, error) {
	summary := dto.AllocationSummary{Year: year, Term: string(term)}
	if !actor.IsAdmin() {
		return summary, ForbiddenError("only administrators can read the allocation summary")
	}
	if year <= 0 || !term.Valid() {
		return summary, ValidationError("a valid year and term are required")
	}

	period, err := s.store.Periods().FindByYearTerm(ctx, year, term)
	switch {
	case err == nil:
		summary.PeriodID = period.ID
		summary.Pool = period.ScholarshipPool
	case !errors.Is(err, repositories.ErrNotFound):
		return summary, storeError(err, "period", "")
	}

	rows, err := s.store.Projects().GrantedByDepartment(ctx, year, term)
	if err != nil {
		return summary, storeError(err, "project", "")
	}
	summary.Departments = make([]dto.DepartmentAllocation, 0, len(rows))
	for _, row := range rows {
		summary.Granted += row.Granted
		summary.Departments = append(summary.Departments, dto.DepartmentAllocation{
			DepartmentID: row.DepartmentID,
			Projects:     row.Projects,
			Granted:      row.Granted,
		})
	}
	if summary.Pool > 0 {
		remaining := summary.Pool - summary.Granted
		summary.Remaining = &remaining
	}
	return summary, nil
}
