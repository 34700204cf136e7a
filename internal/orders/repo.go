package orders

import (
	"context"
	"time"

	dbpkg "github.com/angelmondragon/gigescrow-backend/pkg/db"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/angelmondragon/gigescrow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

type listParams struct {
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
	Status   *enums.OrderStatus
	Limit    int
	Cursor   *pagination.Cursor
}

type sellerStats struct {
	TotalOrders     int64
	CompletedOrders int64
	EscrowHeld      decimal.Decimal
	NetReleased     decimal.Decimal
	Commission      decimal.Decimal
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("Milestones").Create(order).Error
}

func (r *repository) CreateMilestones(ctx context.Context, milestones []models.Milestone) error {
	if len(milestones) == 0 {
		return nil
	}
	for i := range milestones {
		if milestones[i].ID == uuid.Nil {
			milestones[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&milestones).Error
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// LockOrder loads the order row FOR UPDATE. Milestones are not preloaded.
func (r *repository) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := dbpkg.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) LockMilestone(ctx context.Context, orderID, milestoneID uuid.UUID) (*models.Milestone, error) {
	var milestone models.Milestone
	err := dbpkg.ForUpdate(r.db.WithContext(ctx)).
		Where("id = ? AND order_id = ?", milestoneID, orderID).
		First(&milestone).Error
	if err != nil {
		return nil, err
	}
	return &milestone, nil
}

func (r *repository) CountIncompleteMilestones(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Milestone{}).
		Where("order_id = ? AND status <> ?", orderID, enums.MilestoneStatusCompleted).
		Count(&count).Error
	return count, err
}

func (r *repository) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CompleteMilestone(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Milestone{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.MilestoneStatusCompleted,
			"completed_at": at,
		}).Error
}

func (r *repository) List(ctx context.Context, params listParams) ([]models.Order, *pagination.Cursor, error) {
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Order{}).
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
	if params.BuyerID != nil {
		query = query.Where("buyer_id = ?", *params.BuyerID)
	}
	if params.SellerID != nil {
		query = query.Where("seller_id = ?", *params.SellerID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(normalized)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, normalized, func(row models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return page, next, nil
}

func (r *repository) SellerStats(ctx context.Context, sellerID uuid.UUID) (sellerStats, error) {
	var stats sellerStats
	db := r.db.WithContext(ctx)

	row := db.Model(&models.Order{}).
		Select(
			"COUNT(*), "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0), "+
				"COALESCE(SUM(CASE WHEN escrow_status = ? THEN escrow_amount ELSE 0 END), 0), "+
				"COALESCE(SUM(commission_amount), 0)",
			enums.OrderStatusCompleted, enums.EscrowStatusHeld,
		).
		Where("seller_id = ?", sellerID).
		Row()
	if err := row.Scan(&stats.TotalOrders, &stats.CompletedOrders, &stats.EscrowHeld, &stats.Commission); err != nil {
		return sellerStats{}, err
	}

	err := db.Model(&models.WalletTransaction{}).
		Select("COALESCE(SUM(wallet_transactions.amount), 0)").
		Joins("JOIN orders ON orders.id = wallet_transactions.related_order_id").
		Where("orders.seller_id = ? AND wallet_transactions.user_id = ? AND wallet_transactions.type = ? AND wallet_transactions.affects_balance = ?",
			sellerID, sellerID, enums.WalletTransactionCredit, true).
		Row().Scan(&stats.NetReleased)
	if err != nil {
		return sellerStats{}, err
	}
	return stats, nil
}
