package repositories

import (
	"context"

	"github.com/monitoria-simple/models"
	"gorm.io/gorm"
)

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository creates a gorm-backed application repository
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

// FindByID retrieves an application by its ID
func (r *applicationRepository) FindByID(ctx context.Context, id string) (models.Application, error) {
	var application models.Application
	err := r.db.WithContext(ctx).First(&application, "id = ?", id).Error
	return application, translate(err)
}

// FindByProjectPeriod retrieves the applications of a project in one period
func (r *applicationRepository) FindByProjectPeriod(ctx context.Context, projectID, periodID string) ([]models.Application, error) {
	var applications []models.Application
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND period_id = ?", projectID, periodID).
		Order("submitted_at").Order("student_id").
		Find(&applications).Error
	return applications, translate(err)
}

// FindByProject retrieves every application of a project
func (r *applicationRepository) FindByProject(ctx context.Context, projectID string) ([]models.Application, error) {
	var applications []models.Application
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("submitted_at").Order("student_id").
		Find(&applications).Error
	return applications, translate(err)
}

// FindByStudent retrieves every application of a student
func (r *applicationRepository) FindByStudent(ctx context.Context, studentID string) ([]models.Application, error) {
	var applications []models.Application
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("submitted_at desc").
		Find(&applications).Error
	return applications, translate(err)
}

// Exists checks the (project, student, period) uniqueness key
func (r *applicationRepository) Exists(ctx context.Context, projectID, studentID, periodID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("project_id = ? AND student_id = ? AND period_id = ?", projectID, studentID, periodID).
		Count(&count).Error
	return count > 0, translate(err)
}

// CountConfirmedSlot counts the student's confirmed slots of one type in a period
func (r *applicationRepository) CountConfirmedSlot(ctx context.Context, studentID, periodID string, slot models.SlotType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("student_id = ? AND period_id = ? AND status = ? AND assigned_slot = ?",
			studentID, periodID, models.ApplicationConfirmed, slot).
		Count(&count).Error
	return count, translate(err)
}

// Create inserts a new application
func (r *applicationRepository) Create(ctx context.Context, application models.Application) (models.Application, error) {
	err := r.db.WithContext(ctx).Create(&application).Error
	return application, translate(err)
}

// Update modifies an existing application
func (r *applicationRepository) Update(ctx context.Context, application models.Application) error {
	return translate(r.db.WithContext(ctx).Save(&application).Error)
}
