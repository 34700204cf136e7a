package models

import (
	"time"

	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is one purchased service. EscrowAmount is the amount still held for
// the seller; CommissionAmount accumulates the platform cut as funds move.
type Order struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID            uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID           uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	ServiceID          uuid.UUID           `gorm:"column:service_id;type:uuid;not null"`
	Amount             decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	PackageType        enums.PackageType   `gorm:"column:package_type;type:package_type;not null;default:'single'"`
	Status             enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus      enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null"`
	EscrowStatus       enums.EscrowStatus  `gorm:"column:escrow_status;type:escrow_status;not null;default:'held'"`
	EscrowAmount       decimal.Decimal     `gorm:"column:escrow_amount;type:numeric(12,2);not null"`
	CommissionAmount   decimal.Decimal     `gorm:"column:commission_amount;type:numeric(12,2);not null"`
	PlatformFeePercent decimal.Decimal     `gorm:"column:platform_fee_percent;type:numeric(5,2);not null"`
	CouponID           *uuid.UUID          `gorm:"column:coupon_id;type:uuid"`
	Milestones         []Milestone         `gorm:"foreignKey:OrderID"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
