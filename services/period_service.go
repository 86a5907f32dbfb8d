package services

import (
	"context"
	"fmt"
	"time"

	"github.com/monitoria-simple/dto"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/repositories"
)

// PeriodService manages enrollment periods
type PeriodService struct {
	store repositories.Store
	audit *AuditService
	log   *logger.Logger
	now   func() time.Time
}

// NewPeriodService creates a new period service instance
func NewPeriodService(store repositories.Store, audit *AuditService, log *logger.Logger) *PeriodService {
	return &PeriodService{store: store, audit: audit, log: log, now: time.Now}
}

func validatePeriod(req dto.PeriodRequest) error {
	if req.Year <= 0 {
		return ValidationError("year is required")
	}
	if !models.Term(req.Term).Valid() {
		return ValidationError("invalid term %q", req.Term)
	}
	if !req.StartsAt.Before(req.EndsAt) {
		return ValidationError("startsAt must be before endsAt")
	}
	if req.ScholarshipPool < 0 {
		return ValidationError("scholarshipPool must not be negative")
	}
	return nil
}

// Create opens a new enrollment period; admins only
func (s *PeriodService) Create(ctx context.Context, actor models.Identity, req dto.PeriodRequest) (models.EnrollmentPeriod, error) {
	if !actor.IsAdmin() {
		return models.EnrollmentPeriod{}, ForbiddenError("only administrators can manage enrollment periods")
	}
	if err := validatePeriod(req); err != nil {
		return models.EnrollmentPeriod{}, err
	}

	var created models.EnrollmentPeriod
	err := s.store.WithTransaction(ctx, func(tx repositories.Store) error {
		var err error
		created, err = tx.Periods().Create(ctx, models.EnrollmentPeriod{
			Year:            req.Year,
			Term:            models.Term(req.Term),
			StartsAt:        req.StartsAt,
			EndsAt:          req.EndsAt,
			EditalNumber:    req.EditalNumber,
			ScholarshipPool: req.ScholarshipPool,
		})
		if err != nil {
			return storeError(err, "period", fmt.Sprintf("%d/%s", req.Year, req.Term))
		}
		return s.audit.Record(ctx, tx, actor.UserID, ActionCreate, EntityPeriod, created.ID, map[string]interface{}{
			"year": created.Year,
			"term": created.Term,
			"pool": created.ScholarshipPool,
		})
	})
	if err != nil {
		return models.EnrollmentPeriod{}, err
	}
	return created, nil
}

// Update edits an enrollment period; admins only
func (s *PeriodService) Update(ctx context.Context, actor models.Identity, id string, req dto.PeriodRequest) (models.EnrollmentPeriod, error) {
	if !actor.IsAdmin() {
		return models.EnrollmentPeriod{}, ForbiddenError("only administrators can manage enrollment periods")
	}
	if err := validatePeriod(req); err != nil {
		return models.EnrollmentPeriod{}, err
	}

	var updated models.EnrollmentPeriod
	err := s.store.WithTransaction(ctx, func(tx repositories.Store) error {
		period, err := tx.Periods().FindForUpdate(ctx, id)
		if err != nil {
			return storeError(err, "period", id)
		}
		period.Year = req.Year
		period.Term = models.Term(req.Term)
		period.StartsAt = req.StartsAt
		period.EndsAt = req.EndsAt
		period.EditalNumber = req.EditalNumber
		period.ScholarshipPool = req.ScholarshipPool
		if err := tx.Periods().Update(ctx, period); err != nil {
			return storeError(err, "period", id)
		}
		updated = period
		return s.audit.Record(ctx, tx, actor.UserID, ActionUpdate, EntityPeriod, id, map[string]interface{}{
			"pool": period.ScholarshipPool,
		})
	})
	if err != nil {
		return models.EnrollmentPeriod{}, err
	}
	return updated, nil
}

// Get retrieves a period by ID
func (s *PeriodService) Get(ctx context.Context, id string) (models.EnrollmentPeriod, error) {
	period, err := s.store.Periods().FindByID(ctx, id)
	if err != nil {
		return models.EnrollmentPeriod{}, storeError(err, "period", id)
	}
	return period, nil
}

// List retrieves every period, most recent first
func (s *PeriodService) List(ctx context.Context) ([]models.EnrollmentPeriod, error) {
	periods, err := s.store.Periods().List(ctx)
	if err != nil {
		return nil, storeError(err, "period", "")
	}
	return periods, nil
}

// Current retrieves the periods open right now
func (s *PeriodService) Current(ctx context.Context) ([]models.EnrollmentPeriod, error) {
	periods, err := s.store.Periods().FindOpenAt(ctx, s.now())
	if err != nil {
		return nil, storeError(err, "period", "")
	}
	return periods, nil
}
