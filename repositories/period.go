package repositories

import (
	"context"
	"time"

	"github.com/monitoria-simple/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type periodRepository struct {
	db *gorm.DB
}

// NewPeriodRepository creates a gorm-backed enrollment period repository
func NewPeriodRepository(db *gorm.DB) PeriodRepository {
	return &periodRepository{db: db}
}

// FindByID retrieves a period by its ID
func (r *periodRepository) FindByID(ctx context.Context, id string) (models.EnrollmentPeriod, error) {
	var period models.EnrollmentPeriod
	err := r.db.WithContext(ctx).First(&period, "id = ?", id).Error
	return period, translate(err)
}

// FindForUpdate retrieves a period and locks its row, serialising pool checks
func (r *periodRepository) FindForUpdate(ctx context.Context, id string) (models.EnrollmentPeriod, error) {
	var period models.EnrollmentPeriod
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&period, "id = ?", id).Error
	return period, translate(err)
}

// FindByYearTerm retrieves the period announced for a year and term
func (r *periodRepository) FindByYearTerm(ctx context.Context, year int, term models.Term) (models.EnrollmentPeriod, error) {
	var period models.EnrollmentPeriod
	err := r.db.WithContext(ctx).Where("year = ? AND term = ?", year, term).First(&period).Error
	return period, translate(err)
}

// FindOpenAt lists the periods whose window contains at
func (r *periodRepository) FindOpenAt(ctx context.Context, at time.Time) ([]models.EnrollmentPeriod, error) {
	var periods []models.EnrollmentPeriod
	err := r.db.WithContext(ctx).
		Where("starts_at <= ? AND ends_at >= ?", at, at).
		Order("starts_at").
		Find(&periods).Error
	return periods, translate(err)
}

// List retrieves every period, newest first
func (r *periodRepository) List(ctx context.Context) ([]models.EnrollmentPeriod, error) {
	var periods []models.EnrollmentPeriod
	err := r.db.WithContext(ctx).Order("year desc").Order("term desc").Find(&periods).Error
	return periods, translate(err)
}

// Create inserts a new period
func (r *periodRepository) Create(ctx context.Context, period models.EnrollmentPeriod) (models.EnrollmentPeriod, error) {
	err := r.db.WithContext(ctx).Create(&period).Error
	return period, translate(err)
}

// Update modifies an existing period
func (r *periodRepository) Update(ctx context.Context, period models.EnrollmentPeriod) error {
	return translate(r.db.WithContext(ctx).Save(&period).Error)
}
