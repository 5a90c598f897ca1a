package db

import (
	"fmt"

	"github.com/abdulaziz27/analisisaham-ai/internal/models"
	"gorm.io/gorm"
)

// Migrate ensures all tables exist with the current schema.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if err := conn.AutoMigrate(
		&models.UserQuota{},
		&models.PaymentTransaction{},
	); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}
