package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/monitoria-simple/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return NewGormStore(db), mock
}

func TestFindForUpdateLocksProjectRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "projects" WHERE id = \$1 AND "projects"."deleted_at" IS NULL .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status"}).
			AddRow("p-1", "Monitoria de Cálculo I", "APPROVED"))

	project, err := store.Projects().FindForUpdate(context.Background(), "p-1")

	require.NoError(t, err)
	assert.Equal(t, "p-1", project.ID)
	assert.Equal(t, models.ProjectStatusApproved, project.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindForUpdateLocksPeriodRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "enrollment_periods" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "year", "term", "scholarship_pool"}).
			AddRow("per-1", 2024, "SEMESTRE_1", 10))

	period, err := store.Periods().FindForUpdate(context.Background(), "per-1")

	require.NoError(t, err)
	assert.Equal(t, 10, period.ScholarshipPool)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMissingRowMapsToErrNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "applications" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Applications().FindByID(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUniqueViolationMapsToErrDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "audit_entries"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	_, err := store.Audit().Append(context.Background(), models.AuditEntry{
		ActorID:    "admin-1",
		Action:     "CREATE",
		EntityType: "project",
		EntityID:   "p-1",
		Timestamp:  time.Now(),
	})

	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionCommits(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "audit_entries"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTransaction(context.Background(), func(tx Store) error {
		_, err := tx.Audit().Append(context.Background(), models.AuditEntry{
			ActorID:    "admin-1",
			Action:     "APPROVE",
			EntityType: "project",
			EntityID:   "p-1",
			Timestamp:  time.Now(),
		})
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("capacity exceeded")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "audit_entries"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := store.WithTransaction(context.Background(), func(tx Store) error {
		if _, err := tx.Audit().Append(context.Background(), models.AuditEntry{
			ActorID:    "admin-1",
			Action:     "APPROVE",
			EntityType: "project",
			EntityID:   "p-1",
			Timestamp:  time.Now(),
		}); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizePage(t *testing.T) {
	page, size := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)

	page, size = NormalizePage(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, size)
}
