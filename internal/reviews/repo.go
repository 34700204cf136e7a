package reviews

import (
	"context"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/angelmondragon/gigescrow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository persists reviews and the purchase facts they depend on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	HasCompletedPurchase(ctx context.Context, buyerID, serviceID uuid.UUID) (bool, error)
	Create(ctx context.Context, review *models.Review) error
	RatingStats(ctx context.Context, serviceID uuid.UUID) (ratingStats, error)
	ListByService(ctx context.Context, serviceID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Review, *pagination.Cursor, error)
}

type ratingStats struct {
	Average decimal.Decimal
	Count   int64
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) HasCompletedPurchase(ctx context.Context, buyerID, serviceID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("buyer_id = ? AND service_id = ? AND status = ?", buyerID, serviceID, enums.OrderStatusCompleted).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *repository) RatingStats(ctx context.Context, serviceID uuid.UUID) (ratingStats, error) {
	var stats ratingStats
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COUNT(*), COALESCE(AVG(rating), 0)").
		Where("service_id = ?", serviceID).
		Row().Scan(&stats.Count, &stats.Average)
	return stats, err
}

func (r *repository) ListByService(ctx context.Context, serviceID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Review, *pagination.Cursor, error) {
	normalized := pagination.NormalizeLimit(limit)
	query := r.db.WithContext(ctx).Where("service_id = ?", serviceID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Review
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(normalized)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, normalized, func(row models.Review) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return page, next, nil
}
