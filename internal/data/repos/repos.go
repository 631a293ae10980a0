package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/integration-engine/internal/data/repos/integration"
	"github.com/yungbote/integration-engine/internal/platform/logger"
)

type ArchitectureRepo = integration.ArchitectureRepo
type SupportReviewRepo = integration.SupportReviewRepo

type Repos struct {
	Architectures  ArchitectureRepo
	SupportReviews SupportReviewRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Architectures:  integration.NewArchitectureRepo(db, log),
		SupportReviews: integration.NewSupportReviewRepo(db, log),
	}
}
