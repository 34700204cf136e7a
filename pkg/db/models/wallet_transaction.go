package models

import (
	"time"

	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// WalletTransaction is an append-only wallet ledger entry. AffectsBalance is
// false for audit-only entries such as the checkout hold.
type WalletTransaction struct {
	ID             uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	Type           enums.WalletTransactionType `gorm:"column:type;type:wallet_transaction_type;not null"`
	Amount         decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	Reason         string                      `gorm:"column:reason;type:text;not null"`
	RelatedOrderID *uuid.UUID                  `gorm:"column:related_order_id;type:uuid"`
	AffectsBalance bool                        `gorm:"column:affects_balance;not null"`
	Meta           datatypes.JSON              `gorm:"column:meta;type:jsonb"`
	CreatedAt      time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
