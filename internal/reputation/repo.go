package reputation

import (
	"context"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// countedDisputeStatuses weigh against a seller; rejected disputes do not.
var countedDisputeStatuses = []enums.DisputeStatus{
	enums.DisputeStatusOpen,
	enums.DisputeStatusUnderReview,
	enums.DisputeStatusResolved,
}

// Repository reads the aggregates behind a seller's reputation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Inputs(ctx context.Context, sellerID uuid.UUID) (Inputs, error)
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

func (r *repository) Inputs(ctx context.Context, sellerID uuid.UUID) (Inputs, error) {
	db := r.db.WithContext(ctx)
	var in Inputs

	completed := db.Model(&models.Order{}).
		Where("seller_id = ? AND status = ?", sellerID, enums.OrderStatusCompleted)
	if err := completed.Count(&in.CompletedOrders).Error; err != nil {
		return Inputs{}, err
	}

	var revenue decimal.Decimal
	if err := db.Model(&models.Order{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("seller_id = ? AND status = ?", sellerID, enums.OrderStatusCompleted).
		Row().Scan(&revenue); err != nil {
		return Inputs{}, err
	}
	in.Revenue = revenue

	var avg decimal.Decimal
	if err := db.Model(&models.Review{}).
		Select("COALESCE(AVG(reviews.rating), 0)").
		Joins("JOIN services ON services.id = reviews.service_id").
		Where("services.seller_id = ?", sellerID).
		Row().Scan(&avg); err != nil {
		return Inputs{}, err
	}
	in.AverageRating = avg

	if err := db.Model(&models.Dispute{}).
		Joins("JOIN orders ON orders.id = disputes.order_id").
		Where("orders.seller_id = ? AND disputes.status IN ?", sellerID, countedDisputeStatuses).
		Count(&in.Disputes).Error; err != nil {
		return Inputs{}, err
	}
	return in, nil
}
