package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/integration-engine/internal/domain/integration"
)

// SeedArchitecture stores a bare record for userID at version 1 with an empty JSON state.
func SeedArchitecture(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, nextCheck time.Time) *types.IntegrationArchitectureRecord {
	tb.Helper()
	row := &types.IntegrationArchitectureRecord{
		ID:                       uuid.New(),
		UserID:                   userID,
		Stage:                    string(types.StageDailyIntegration),
		Version:                  1,
		NextMandatoryIntegration: nextCheck,
		State:                    datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed architecture: %v", err)
	}
	return row
}
