package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// GormStore is the postgres-backed Store
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a gorm connection (or transaction) as a Store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Projects() ProjectRepository           { return NewProjectRepository(s.db) }
func (s *GormStore) Periods() PeriodRepository             { return NewPeriodRepository(s.db) }
func (s *GormStore) Applications() ApplicationRepository   { return NewApplicationRepository(s.db) }
func (s *GormStore) Selections() SelectionRepository       { return NewSelectionRepository(s.db) }
func (s *GormStore) Minutes() MinutesRepository            { return NewMinutesRepository(s.db) }
func (s *GormStore) Documents() DocumentRepository         { return NewDocumentRepository(s.db) }
func (s *GormStore) Audit() AuditRepository                { return NewAuditRepository(s.db) }
func (s *GormStore) Notifications() NotificationRepository { return NewNotificationRepository(s.db) }

// WithTransaction runs fn inside a database transaction. Nested calls
// become savepoints.
func (s *GormStore) WithTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormStore(tx))
	})
}

// DB returns the underlying connection
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// translate maps gorm errors onto the repository sentinels
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
