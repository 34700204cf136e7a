package catalog

import (
	"context"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository reads catalog services and maintains their counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Service, error)
	FindApprovedByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Service, error)
	IncrementPurchases(ctx context.Context, id uuid.UUID) error
	UpdateRating(ctx context.Context, id uuid.UUID, rating decimal.Decimal, count int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	var svc models.Service
	if err := r.db.WithContext(ctx).First(&svc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *repository) FindApprovedByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Service, error) {
	out := make(map[uuid.UUID]models.Service, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Service
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND approval_status = ?", ids, enums.ServiceApprovalApproved).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *repository) IncrementPurchases(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Service{}).
		Where("id = ?", id).
		UpdateColumn("purchases", gorm.Expr("purchases + 1")).Error
}

func (r *repository) UpdateRating(ctx context.Context, id uuid.UUID, rating decimal.Decimal, count int) error {
	return r.db.WithContext(ctx).
		Model(&models.Service{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"rating": rating, "rating_count": count}).Error
}
