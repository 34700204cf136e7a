package models

import (
	"time"

	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Coupon is a platform discount code. UsedCount never exceeds MaxUsage.
type Coupon struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string             `gorm:"column:code;type:text;not null;uniqueIndex"`
	DiscountType  enums.DiscountType `gorm:"column:discount_type;type:discount_type;not null"`
	DiscountValue decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	ExpiryDate    time.Time          `gorm:"column:expiry_date;not null"`
	MaxUsage      int                `gorm:"column:max_usage;not null;default:1"`
	UsedCount     int                `gorm:"column:used_count;not null;default:0"`
	IsActive      bool               `gorm:"column:is_active;not null"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
