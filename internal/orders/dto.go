package orders

import (
	"time"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MilestoneDTO is the transport shape of a milestone.
type MilestoneDTO struct {
	ID          uuid.UUID             `json:"id"`
	Title       string                `json:"title"`
	Amount      decimal.Decimal       `json:"amount"`
	Position    int                   `json:"position"`
	Status      enums.MilestoneStatus `json:"status"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
}

// OrderDTO is the transport shape of an order and its milestones.
type OrderDTO struct {
	ID                 uuid.UUID           `json:"id"`
	BuyerID            uuid.UUID           `json:"buyer_id"`
	SellerID           uuid.UUID           `json:"seller_id"`
	ServiceID          uuid.UUID           `json:"service_id"`
	Amount             decimal.Decimal     `json:"amount"`
	PackageType        enums.PackageType   `json:"package_type"`
	Status             enums.OrderStatus   `json:"status"`
	PaymentStatus      enums.PaymentStatus `json:"payment_status"`
	EscrowStatus       enums.EscrowStatus  `json:"escrow_status"`
	EscrowAmount       decimal.Decimal     `json:"escrow_amount"`
	CommissionAmount   decimal.Decimal     `json:"commission_amount"`
	PlatformFeePercent decimal.Decimal     `json:"platform_fee_percent"`
	CouponID           *uuid.UUID          `json:"coupon_id,omitempty"`
	Milestones         []MilestoneDTO      `json:"milestones"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// OrderList wraps a page of orders.
type OrderList struct {
	Orders []OrderDTO `json:"orders"`
	Cursor string     `json:"cursor"`
}

// ListParams filters buyer and seller order lists.
type ListParams struct {
	Limit  int
	Cursor string
	Status *enums.OrderStatus
}

// UpdateStatusInput requests a lifecycle transition.
type UpdateStatusInput struct {
	OrderID uuid.UUID
	Status  enums.OrderStatus
}

// StatusResult is returned by UpdateStatus.
type StatusResult struct {
	Order          OrderDTO        `json:"order"`
	ReleasedAmount decimal.Decimal `json:"released_amount"`
}

// MilestoneResult is returned by CompleteMilestone.
type MilestoneResult struct {
	Milestone  MilestoneDTO    `json:"milestone"`
	Order      OrderDTO        `json:"order"`
	NetCredit  decimal.Decimal `json:"net_credited"`
	Commission decimal.Decimal `json:"commission"`
}

// PerformanceDTO summarizes a seller's order book.
type PerformanceDTO struct {
	SellerID        uuid.UUID       `json:"seller_id"`
	TotalOrders     int64           `json:"total_orders"`
	CompletedOrders int64           `json:"completed_orders"`
	ActiveOrders    int64           `json:"active_orders"`
	CompletionRate  decimal.Decimal `json:"completion_rate"`
	EscrowHeld      decimal.Decimal `json:"total_escrow_held"`
	NetReleased     decimal.Decimal `json:"total_revenue_released"`
	Commission      decimal.Decimal `json:"total_commission"`
}

// FromModel maps an order row to its DTO.
func FromModel(order models.Order) OrderDTO {
	dto := OrderDTO{
		ID:                 order.ID,
		BuyerID:            order.BuyerID,
		SellerID:           order.SellerID,
		ServiceID:          order.ServiceID,
		Amount:             order.Amount,
		PackageType:        order.PackageType,
		Status:             order.Status,
		PaymentStatus:      order.PaymentStatus,
		EscrowStatus:       order.EscrowStatus,
		EscrowAmount:       order.EscrowAmount,
		CommissionAmount:   order.CommissionAmount,
		PlatformFeePercent: order.PlatformFeePercent,
		CouponID:           order.CouponID,
		Milestones:         make([]MilestoneDTO, 0, len(order.Milestones)),
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
	for _, m := range order.Milestones {
		dto.Milestones = append(dto.Milestones, MilestoneFromModel(m))
	}
	return dto
}

func MilestoneFromModel(m models.Milestone) MilestoneDTO {
	return MilestoneDTO{
		ID:          m.ID,
		Title:       m.Title,
		Amount:      m.Amount,
		Position:    m.Position,
		Status:      m.Status,
		CompletedAt: m.CompletedAt,
	}
}
