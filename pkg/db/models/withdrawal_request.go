package models

import (
	"time"

	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawalRequest is a seller's payout request against their wallet.
type WithdrawalRequest struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID    uuid.UUID              `gorm:"column:seller_id;type:uuid;not null"`
	Amount      decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	Status      enums.WithdrawalStatus `gorm:"column:status;type:withdrawal_status;not null;default:'pending'"`
	Note        *string                `gorm:"column:note;type:text"`
	RequestedAt time.Time              `gorm:"column:requested_at;not null"`
	ProcessedAt *time.Time             `gorm:"column:processed_at"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
