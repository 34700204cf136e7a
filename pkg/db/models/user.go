package models

import (
	"time"

	dbtypes "github.com/angelmondragon/gigescrow-backend/pkg/db/types"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is a marketplace account. Wallet changes only through wallet ledger
// entries; SellerLevel and ReputationScore only through the reputation
// aggregator.
type User struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email            string             `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name             string             `gorm:"column:name;type:text;not null"`
	Role             enums.UserRole     `gorm:"column:role;type:user_role;not null"`
	Wallet           decimal.Decimal    `gorm:"column:wallet;type:numeric(12,2);not null;default:0"`
	SellerLevel      enums.SellerLevel  `gorm:"column:seller_level;type:seller_level;not null;default:'new'"`
	ReputationScore  decimal.Decimal    `gorm:"column:reputation_score;type:numeric(5,2);not null;default:0"`
	ViewedCategories dbtypes.StringRing `gorm:"column:viewed_categories;type:jsonb;not null;default:'[]'"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
