package database

import (
	"github.com/wagate/pkg/entities"
	"gorm.io/gorm"
)

// AutoMigrate runs database migrations
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entities.User{},
		&entities.Session{},
		&entities.Webhook{},
		&entities.WebhookLog{},
	)
}
