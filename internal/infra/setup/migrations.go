package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Owskar/collaborative-code-editor/internal/domain"
)

// MigrateDB creates or updates the users, documents and document_collaborators tables.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	// Order matters: collaborators reference documents and users.
	models := []interface{}{
		&domain.User{},
		&domain.Document{},
		&domain.DocumentCollaborator{},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("failed to auto-migrate %T: %w", m, err)
		}
	}

	logrus.Info("Database migration completed successfully")
	return nil
}
