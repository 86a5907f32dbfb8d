package database

import (
	"fmt"

	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/models"
	"gorm.io/gorm"
)

// Models lists every persisted type in dependency order
func Models() []interface{} {
	return []interface{}{
		&models.EnrollmentPeriod{},
		&models.Project{},
		&models.Application{},
		&models.SelectionRound{},
		&models.Minutes{},
		&models.MinutesEntry{},
		&models.SignedDocument{},
		&models.AuditEntry{},
		&models.NotificationDelivery{},
	}
}

// Migrate brings the schema up to date
func Migrate(db *gorm.DB, log *logger.Logger) error {
	log.Info("migrating database schema")
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.WithField("tables", len(Models())).Info("database schema migrated")
	return nil
}
