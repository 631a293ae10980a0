package integration

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/integration-engine/internal/domain/integration"
	"github.com/yungbote/integration-engine/internal/platform/dbctx"
	"github.com/yungbote/integration-engine/internal/platform/logger"
)

type SupportReviewRepo interface {
	Create(dbc dbctx.Context, rows []*types.ProfessionalSupportReview) ([]*types.ProfessionalSupportReview, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.ProfessionalSupportReview, error)
	ListUnresolved(dbc dbctx.Context, limit int) ([]*types.ProfessionalSupportReview, error)
	Resolve(dbc dbctx.Context, id uuid.UUID) error
}

type supportReviewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSupportReviewRepo(db *gorm.DB, log *logger.Logger) SupportReviewRepo {
	return &supportReviewRepo{db: db, log: log.With("repo", "SupportReviewRepo")}
}

func (r *supportReviewRepo) Create(dbc dbctx.Context, rows []*types.ProfessionalSupportReview) ([]*types.ProfessionalSupportReview, error) {
	if len(rows) == 0 {
		return []*types.ProfessionalSupportReview{}, nil
	}
	for _, row := range rows {
		if row == nil || row.UserID == uuid.Nil {
			return nil, fmt.Errorf("review row missing user_id")
		}
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	if err := txx.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *supportReviewRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.ProfessionalSupportReview, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.ProfessionalSupportReview
	if err := txx.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *supportReviewRepo) ListUnresolved(dbc dbctx.Context, limit int) ([]*types.ProfessionalSupportReview, error) {
	if limit <= 0 {
		limit = 100
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.ProfessionalSupportReview
	if err := txx.WithContext(dbc.Ctx).
		Where("resolved = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *supportReviewRepo) Resolve(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).
		Model(&types.ProfessionalSupportReview{}).
		Where("id = ?", id).
		Update("resolved", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
