package wallet

import (
	"context"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/angelmondragon/gigescrow-backend/pkg/money"
	"github.com/angelmondragon/gigescrow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository manages persistence for wallet ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.WalletTransaction) error
	ListByUser(ctx context.Context, params listParams) ([]models.WalletTransaction, *pagination.Cursor, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.WalletTransaction, error)
	Totals(ctx context.Context, userID uuid.UUID) (Totals, error)
}

// Totals sums a user's balance-affecting entries by direction.
type Totals struct {
	Credits decimal.Decimal
	Debits  decimal.Decimal
}

type listParams struct {
	UserID uuid.UUID
	Limit  int
	Cursor *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.WalletTransaction) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByUser(ctx context.Context, params listParams) ([]models.WalletTransaction, *pagination.Cursor, error) {
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).Where("user_id = ?", params.UserID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.WalletTransaction
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(normalized)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, normalized, func(row models.WalletTransaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return page, next, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.WalletTransaction, error) {
	var rows []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Where("related_order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Totals(ctx context.Context, userID uuid.UUID) (Totals, error) {
	sum := func(kind enums.WalletTransactionType) (decimal.Decimal, error) {
		var total decimal.Decimal
		err := r.db.WithContext(ctx).
			Model(&models.WalletTransaction{}).
			Select("COALESCE(SUM(amount), 0)").
			Where("user_id = ? AND type = ? AND affects_balance = ?", userID, kind, true).
			Row().
			Scan(&total)
		return money.Round2(total), err
	}

	credits, err := sum(enums.WalletTransactionCredit)
	if err != nil {
		return Totals{}, err
	}
	debits, err := sum(enums.WalletTransactionDebit)
	if err != nil {
		return Totals{}, err
	}
	return Totals{Credits: credits, Debits: debits}, nil
}
