package models

import (
	"time"

	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Service is a seller's catalog listing. Packages holds optional named tiers
// keyed by package type, each with its own price.
type Service struct {
	ID             uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID       uuid.UUID                   `gorm:"column:seller_id;type:uuid;not null"`
	Title          string                      `gorm:"column:title;type:text;not null"`
	Category       string                      `gorm:"column:category;type:text"`
	Price          decimal.Decimal             `gorm:"column:price;type:numeric(12,2);not null"`
	Packages       datatypes.JSON              `gorm:"column:packages;type:jsonb"`
	ApprovalStatus enums.ServiceApprovalStatus `gorm:"column:approval_status;type:service_approval_status;not null;default:'pending'"`
	Rating         decimal.Decimal             `gorm:"column:rating;type:numeric(3,2);not null;default:0"`
	RatingCount    int                         `gorm:"column:rating_count;not null;default:0"`
	Purchases      int                         `gorm:"column:purchases;not null;default:0"`
	CreatedAt      time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}
