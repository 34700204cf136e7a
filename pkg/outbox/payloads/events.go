package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
)

// NotificationRequestedEvent asks the notification sink to alert one user.
type NotificationRequestedEvent struct {
	UserID  uuid.UUID              `json:"user_id"`
	Type    enums.NotificationType `json:"type"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Meta    map[string]any         `json:"meta,omitempty"`
}

// OrderCreatedEvent is emitted once per order written by checkout.
type OrderCreatedEvent struct {
	OrderID          uuid.UUID         `json:"order_id"`
	BuyerID          uuid.UUID         `json:"buyer_id"`
	SellerID         uuid.UUID         `json:"seller_id"`
	ServiceID        uuid.UUID         `json:"service_id"`
	PackageType      enums.PackageType `json:"package_type"`
	Amount           decimal.Decimal   `json:"amount"`
	EscrowAmount     decimal.Decimal   `json:"escrow_amount"`
	CommissionAmount decimal.Decimal   `json:"commission_amount"`
	CouponID         *uuid.UUID        `json:"coupon_id,omitempty"`
}

// OrderStatusChangedEvent records an accepted lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID  uuid.UUID         `json:"order_id"`
	BuyerID  uuid.UUID         `json:"buyer_id"`
	SellerID uuid.UUID         `json:"seller_id"`
	From     enums.OrderStatus `json:"from"`
	To       enums.OrderStatus `json:"to"`
}

// OrderCompletedEvent feeds the invoice writer.
type OrderCompletedEvent struct {
	OrderID          uuid.UUID       `json:"order_id"`
	BuyerID          uuid.UUID       `json:"buyer_id"`
	SellerID         uuid.UUID       `json:"seller_id"`
	Amount           decimal.Decimal `json:"amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	CompletedAt      time.Time       `json:"completed_at"`
}

// EscrowReleasedEvent is emitted when held funds reach the seller.
type EscrowReleasedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	NetReleased decimal.Decimal `json:"net_released"`
	Source      string          `json:"source"`
}

// EscrowRefundedEvent is emitted when a dispute returns held funds to the buyer.
type EscrowRefundedEvent struct {
	OrderID   uuid.UUID       `json:"order_id"`
	BuyerID   uuid.UUID       `json:"buyer_id"`
	DisputeID uuid.UUID       `json:"dispute_id"`
	Amount    decimal.Decimal `json:"amount"`
}
