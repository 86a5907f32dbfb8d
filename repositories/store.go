package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/monitoria-simple/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique index
	ErrDuplicate = errors.New("duplicate record")
)

// ProjectFilter narrows project listings
type ProjectFilter struct {
	ProfessorID string
	Status      models.ProjectStatus
	Year        int
	Term        models.Term
	Search      string
	Page        int
	PageSize    int
}

// AuditFilter narrows audit listings
type AuditFilter struct {
	EntityType string
	EntityID   string
	ActorID    string
	Page       int
	PageSize   int
}

// DepartmentAllocation is the granted total for one department
type DepartmentAllocation struct {
	DepartmentID string `json:"departmentId"`
	Projects     int    `json:"projects"`
	Granted      int    `json:"granted"`
}

// ProjectRepository handles persistence for projects
type ProjectRepository interface {
	FindByID(ctx context.Context, id string) (models.Project, error)
	// FindForUpdate reads the project and holds a row lock until the
	// surrounding transaction ends
	FindForUpdate(ctx context.Context, id string) (models.Project, error)
	FindWithPagination(ctx context.Context, filter ProjectFilter) ([]models.Project, int64, error)
	Create(ctx context.Context, project models.Project) (models.Project, error)
	Update(ctx context.Context, project models.Project) error
	Delete(ctx context.Context, id string) error
	// SumGranted totals scholarshipsGranted of approved projects in a
	// year/term, leaving out excludeID
	SumGranted(ctx context.Context, year int, term models.Term, excludeID string) (int, error)
	GrantedByDepartment(ctx context.Context, year int, term models.Term) ([]DepartmentAllocation, error)
}

// PeriodRepository handles persistence for enrollment periods
type PeriodRepository interface {
	FindByID(ctx context.Context, id string) (models.EnrollmentPeriod, error)
	FindForUpdate(ctx context.Context, id string) (models.EnrollmentPeriod, error)
	FindByYearTerm(ctx context.Context, year int, term models.Term) (models.EnrollmentPeriod, error)
	FindOpenAt(ctx context.Context, at time.Time) ([]models.EnrollmentPeriod, error)
	List(ctx context.Context) ([]models.EnrollmentPeriod, error)
	Create(ctx context.Context, period models.EnrollmentPeriod) (models.EnrollmentPeriod, error)
	Update(ctx context.Context, period models.EnrollmentPeriod) error
}

// ApplicationRepository handles persistence for applications
type ApplicationRepository interface {
	FindByID(ctx context.Context, id string) (models.Application, error)
	FindByProjectPeriod(ctx context.Context, projectID, periodID string) ([]models.Application, error)
	FindByProject(ctx context.Context, projectID string) ([]models.Application, error)
	FindByStudent(ctx context.Context, studentID string) ([]models.Application, error)
	Exists(ctx context.Context, projectID, studentID, periodID string) (bool, error)
	// CountConfirmedSlot counts the student's confirmed applications holding slot in a period
	CountConfirmedSlot(ctx context.Context, studentID, periodID string, slot models.SlotType) (int64, error)
	Create(ctx context.Context, application models.Application) (models.Application, error)
	Update(ctx context.Context, application models.Application) error
}

// SelectionRepository records closed selection rounds
type SelectionRepository interface {
	FindRound(ctx context.Context, projectID, periodID string) (models.SelectionRound, error)
	CreateRound(ctx context.Context, round models.SelectionRound) (models.SelectionRound, error)
}

// MinutesRepository handles persistence for minutes and their entries
type MinutesRepository interface {
	FindByID(ctx context.Context, id string) (models.Minutes, error)
	FindForUpdate(ctx context.Context, id string) (models.Minutes, error)
	FindByProjectPeriod(ctx context.Context, projectID, periodID string) (models.Minutes, error)
	// Create inserts the header and every entry
	Create(ctx context.Context, minutes models.Minutes) (models.Minutes, error)
	// Update writes header fields only; entries are immutable
	Update(ctx context.Context, minutes models.Minutes) error
}

// DocumentRepository is append-only storage for signed document records
type DocumentRepository interface {
	Create(ctx context.Context, doc models.SignedDocument) (models.SignedDocument, error)
	FindByID(ctx context.Context, id string) (models.SignedDocument, error)
	FindByProject(ctx context.Context, projectID string) ([]models.SignedDocument, error)
}

// AuditRepository is append-only storage for audit entries
type AuditRepository interface {
	Append(ctx context.Context, entry models.AuditEntry) (models.AuditEntry, error)
	List(ctx context.Context, filter AuditFilter) ([]models.AuditEntry, int64, error)
}

// NotificationRepository is the notification outbox
type NotificationRepository interface {
	FindByProjectPeriod(ctx context.Context, projectID, periodID string) ([]models.NotificationDelivery, error)
	Create(ctx context.Context, delivery models.NotificationDelivery) (models.NotificationDelivery, error)
	Update(ctx context.Context, delivery models.NotificationDelivery) error
}

// Store groups the repositories behind a unit of work
type Store interface {
	Projects() ProjectRepository
	Periods() PeriodRepository
	Applications() ApplicationRepository
	Selections() SelectionRepository
	Minutes() MinutesRepository
	Documents() DocumentRepository
	Audit() AuditRepository
	Notifications() NotificationRepository

	// WithTransaction runs fn against a transactional Store. A non-nil
	// error from fn rolls everything back; nil commits.
	WithTransaction(ctx context.Context, fn func(tx Store) error) error
}

// NormalizePage applies the listing defaults used across the API
func NormalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
