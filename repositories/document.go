package repositories

import (
	"context"

	"github.com/monitoria-simple/models"
	"gorm.io/gorm"
)

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a gorm-backed signed document repository
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create appends a signed document record
func (r *documentRepository) Create(ctx context.Context, doc models.SignedDocument) (models.SignedDocument, error) {
	err := r.db.WithContext(ctx).Create(&doc).Error
	return doc, translate(err)
}

// FindByID retrieves a signed document record
func (r *documentRepository) FindByID(ctx context.Context, id string) (models.SignedDocument, error) {
	var doc models.SignedDocument
	err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	return doc, translate(err)
}

// FindByProject lists a project's documents by creation time. Documents
// created in the same instant come back in id order, which is arbitrary.
func (r *documentRepository) FindByProject(ctx context.Context, projectID string) ([]models.SignedDocument, error) {
	var docs []models.SignedDocument
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at").Order("id").
		Find(&docs).Error
	return docs, translate(err)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a gorm-backed audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Append inserts an audit entry
func (r *auditRepository) Append(ctx context.Context, entry models.AuditEntry) (models.AuditEntry, error) {
	err := r.db.WithContext(ctx).Create(&entry).Error
	return entry, translate(err)
}

// List retrieves audit entries newest first
func (r *auditRepository) List(ctx context.Context, filter AuditFilter) ([]models.AuditEntry, int64, error) {
	var entries []models.AuditEntry
	var totalCount int64

	db := r.db.WithContext(ctx).Model(&models.AuditEntry{})
	if filter.EntityType != "" {
		db = db.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		db = db.Where("entity_id = ?", filter.EntityID)
	}
	if filter.ActorID != "" {
		db = db.Where("actor_id = ?", filter.ActorID)
	}

	if err := db.Count(&totalCount).Error; err != nil {
		return nil, 0, translate(err)
	}

	page, pageSize := NormalizePage(filter.Page, filter.PageSize)
	err := db.Order("occurred_at desc").Order("id").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&entries).Error
	return entries, totalCount, translate(err)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a gorm-backed notification outbox
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// FindByProjectPeriod lists the outbox rows of a publish
func (r *notificationRepository) FindByProjectPeriod(ctx context.Context, projectID, periodID string) ([]models.NotificationDelivery, error) {
	var deliveries []models.NotificationDelivery
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND period_id = ?", projectID, periodID).
		Order("created_at").Order("application_id").
		Find(&deliveries).Error
	return deliveries, translate(err)
}

// Create inserts an outbox row; the idempotency key is unique
func (r *notificationRepository) Create(ctx context.Context, delivery models.NotificationDelivery) (models.NotificationDelivery, error) {
	err := r.db.WithContext(ctx).Create(&delivery).Error
	return delivery, translate(err)
}

// Update records a delivery attempt
func (r *notificationRepository) Update(ctx context.Context, delivery models.NotificationDelivery) error {
	return translate(r.db.WithContext(ctx).Save(&delivery).Error)
}
