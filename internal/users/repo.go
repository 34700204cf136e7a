package users

import (
	"context"

	"github.com/angelmondragon/gigescrow-backend/pkg/db"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/gigescrow-backend/pkg/db/types"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository reads users and writes the wallet, reputation and browsing
// columns the escrow core owns.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// LockByID loads the user row FOR UPDATE. Callers must hold a transaction.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) row(ctx context.Context, id uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id)
}

// UpdateWallet overwrites the wallet balance. Callers record the matching
// ledger entry in the same transaction.
func (r *Repository) UpdateWallet(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	return r.row(ctx, id).UpdateColumn("wallet", balance).Error
}

// UpdateReputation writes the aggregator's score and tier.
func (r *Repository) UpdateReputation(ctx context.Context, id uuid.UUID, score decimal.Decimal, level enums.SellerLevel) error {
	return r.row(ctx, id).UpdateColumns(map[string]any{
		"reputation_score": score,
		"seller_level":     level,
	}).Error
}

func (r *Repository) UpdateViewedCategories(ctx context.Context, id uuid.UUID, ring dbtypes.StringRing) error {
	return r.row(ctx, id).UpdateColumn("viewed_categories", ring).Error
}
