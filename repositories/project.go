package repositories

import (
	"context"

	"github.com/monitoria-simple/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a gorm-backed project repository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// FindByID retrieves a project by its ID
func (r *projectRepository) FindByID(ctx context.Context, id string) (models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error
	return project, translate(err)
}

// FindForUpdate retrieves a project and locks its row
func (r *projectRepository) FindForUpdate(ctx context.Context, id string) (models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&project, "id = ?", id).Error
	return project, translate(err)
}

// FindWithPagination retrieves projects with pagination and filtering
func (r *projectRepository) FindWithPagination(ctx context.Context, filter ProjectFilter) ([]models.Project, int64, error) {
	var projects []models.Project
	var totalCount int64

	db := r.db.WithContext(ctx).Model(&models.Project{})

	if filter.ProfessorID != "" {
		db = db.Where("professor_id = ?", filter.ProfessorID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Year != 0 {
		db = db.Where("year = ?", filter.Year)
	}
	if filter.Term != "" {
		db = db.Where("term = ?", filter.Term)
	}
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		db = db.Where("(title ILIKE ? OR description ILIKE ?)", searchPattern, searchPattern)
	}

	if err := db.Count(&totalCount).Error; err != nil {
		return nil, 0, translate(err)
	}

	page, pageSize := NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize

	if err := db.Order("created_at desc").Order("id").Limit(pageSize).Offset(offset).Find(&projects).Error; err != nil {
		return nil, 0, translate(err)
	}

	return projects, totalCount, nil
}

// Create inserts a new project
func (r *projectRepository) Create(ctx context.Context, project models.Project) (models.Project, error) {
	err := r.db.WithContext(ctx).Create(&project).Error
	return project, translate(err)
}

// Update writes every column of an existing project
func (r *projectRepository) Update(ctx context.Context, project models.Project) error {
	return translate(r.db.WithContext(ctx).Save(&project).Error)
}

// Delete archives a project (soft delete)
func (r *projectRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Project{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SumGranted totals granted scholarships of approved projects in a period
func (r *projectRepository) SumGranted(ctx context.Context, year int, term models.Term, excludeID string) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Project{}).
		Select("COALESCE(SUM(scholarships_granted), 0)").
		Where("year = ? AND term = ? AND status = ? AND id <> ?", year, term, models.ProjectStatusApproved, excludeID).
		Scan(&total).Error
	return int(total), translate(err)
}

// GrantedByDepartment groups approved grants per department
func (r *projectRepository) GrantedByDepartment(ctx context.Context, year int, term models.Term) ([]DepartmentAllocation, error) {
	var rows []DepartmentAllocation
	err := r.db.WithContext(ctx).Model(&models.Project{}).
		Select("department_id, COUNT(*) AS projects, COALESCE(SUM(scholarships_granted), 0) AS granted").
		Where("year = ? AND term = ? AND status = ?", year, term, models.ProjectStatusApproved).
		Group("department_id").
		Order("department_id").
		Scan(&rows).Error
	return rows, translate(err)
}
