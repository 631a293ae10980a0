package integration

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/integration-engine/internal/domain/integration"
	"github.com/yungbote/integration-engine/internal/platform/dbctx"
	"github.com/yungbote/integration-engine/internal/platform/logger"
)

type ArchitectureRepo interface {
	Create(dbc dbctx.Context, row *types.IntegrationArchitectureRecord) error
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.IntegrationArchitectureRecord, error)
	LockByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.IntegrationArchitectureRecord, error)
	ListDue(dbc dbctx.Context, before time.Time, limit int) ([]*types.IntegrationArchitectureRecord, error)
}

type architectureRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArchitectureRepo(db *gorm.DB, log *logger.Logger) ArchitectureRepo {
	return &architectureRepo{db: db, log: log.With("repo", "ArchitectureRepo")}
}

func (r *architectureRepo) Create(dbc dbctx.Context, row *types.IntegrationArchitectureRecord) error {
	if row == nil {
		return fmt.Errorf("missing row")
	}
	if row.UserID == uuid.Nil {
		return fmt.Errorf("missing user_id")
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).Create(row).Error
}

// GetByUserID returns gorm.ErrRecordNotFound when the user has no architecture yet.
func (r *architectureRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.IntegrationArchitectureRecord, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out types.IntegrationArchitectureRecord
	if err := txx.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *architectureRepo) LockByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.IntegrationArchitectureRecord, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByUserID required dbc.Tx")
	}
	var out types.IntegrationArchitectureRecord
	if err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDue returns architectures whose mandatory integration check is at or before the cutoff,
// oldest first.
func (r *architectureRepo) ListDue(dbc dbctx.Context, before time.Time, limit int) ([]*types.IntegrationArchitectureRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.IntegrationArchitectureRecord
	if err := txx.WithContext(dbc.Ctx).
		Where("next_mandatory_integration <= ?", before).
		Order("next_mandatory_integration ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
