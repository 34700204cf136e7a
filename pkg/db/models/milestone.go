package models

import (
	"time"

	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Milestone is a slice of an order's escrow released on its own completion.
type Milestone struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	Title       string                `gorm:"column:title;type:text;not null"`
	Amount      decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	Position    int                   `gorm:"column:position;not null;default:0"`
	Status      enums.MilestoneStatus `gorm:"column:status;type:milestone_status;not null;default:'pending'"`
	CompletedAt *time.Time            `gorm:"column:completed_at"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
