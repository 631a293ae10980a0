package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/integration-engine/internal/domain/integration"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&types.IntegrationArchitectureRecord{},
		&types.ProfessionalSupportReview{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
