package models

import (
	"time"

	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/google/uuid"
)

// Dispute is raised against an order's escrow and settled by an admin.
type Dispute struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	RaisedByID    uuid.UUID             `gorm:"column:raised_by_id;type:uuid;not null"`
	Reason        string                `gorm:"column:reason;type:text;not null"`
	ProofURL      *string               `gorm:"column:proof_url;type:text"`
	Status        enums.DisputeStatus   `gorm:"column:status;type:dispute_status;not null;default:'open'"`
	AdminDecision enums.DisputeDecision `gorm:"column:admin_decision;type:dispute_decision;not null;default:'none'"`
	AdminNotes    *string               `gorm:"column:admin_notes;type:text"`
	ResolvedAt    *time.Time            `gorm:"column:resolved_at"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
