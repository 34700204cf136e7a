package disputes

import (
	"time"

	"github.com/angelmondragon/gigescrow-backend/internal/orders"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DisputeDTO is the transport shape of a dispute.
type DisputeDTO struct {
	ID            uuid.UUID             `json:"id"`
	OrderID       uuid.UUID             `json:"order_id"`
	RaisedByID    uuid.UUID             `json:"raised_by_id"`
	Reason        string                `json:"reason"`
	ProofURL      *string               `json:"proof_url,omitempty"`
	Status        enums.DisputeStatus   `json:"status"`
	AdminDecision enums.DisputeDecision `json:"admin_decision"`
	AdminNotes    *string               `json:"admin_notes,omitempty"`
	ResolvedAt    *time.Time            `json:"resolved_at,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// RaiseInput opens a dispute on an order.
type RaiseInput struct {
	OrderID  uuid.UUID
	Reason   string
	ProofURL string
}

// ResolveInput is an admin's ruling. Decision defaults to the dispute's
// current decision when empty.
type ResolveInput struct {
	DisputeID  uuid.UUID
	Status     enums.DisputeStatus
	Decision   enums.DisputeDecision
	AdminNotes string
}

// ResolveResult reports the ruling and any funds it moved.
type ResolveResult struct {
	Dispute  DisputeDTO      `json:"dispute"`
	Order    orders.OrderDTO `json:"order"`
	Refunded decimal.Decimal `json:"refunded"`
	Released decimal.Decimal `json:"released"`
}

// ListParams pages through disputes.
type ListParams struct {
	Limit  int
	Cursor string
	Status *enums.DisputeStatus
}

// DisputeList wraps a page of disputes.
type DisputeList struct {
	Disputes []DisputeDTO `json:"disputes"`
	Cursor   string       `json:"cursor"`
}

func FromModel(d models.Dispute) DisputeDTO {
	return DisputeDTO{
		ID:            d.ID,
		OrderID:       d.OrderID,
		RaisedByID:    d.RaisedByID,
		Reason:        d.Reason,
		ProofURL:      d.ProofURL,
		Status:        d.Status,
		AdminDecision: d.AdminDecision,
		AdminNotes:    d.AdminNotes,
		ResolvedAt:    d.ResolvedAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}
