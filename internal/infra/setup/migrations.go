package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"multiuser-chat/internal/domain"
)

// MigrateDB creates or updates the schema. AutoMigrate is idempotent
// (CREATE TABLE IF NOT EXISTS semantics) and must complete before any
// handler runs; a failure here is fatal to the process.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	err := db.AutoMigrate(
		&domain.User{},
		&domain.Room{},
		&domain.Membership{},
		&domain.Message{},
		&domain.UploadedFile{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}

	logrus.Info("Database migration completed successfully")
	return nil
}
