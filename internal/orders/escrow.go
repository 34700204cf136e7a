package orders

import (
	"context"

	"github.com/angelmondragon/gigescrow-backend/internal/wallet"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/metrics"
	"github.com/angelmondragon/gigescrow-backend/pkg/money"
	"github.com/angelmondragon/gigescrow-backend/pkg/outbox"
	"github.com/angelmondragon/gigescrow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReleaseSource labels what triggered an escrow release.
type ReleaseSource string

const (
	ReleaseOnCompletion ReleaseSource = "completion"
	ReleaseOnMilestone  ReleaseSource = "milestone"
	ReleaseOnDispute    ReleaseSource = "dispute"
)

var releaseReasons = map[ReleaseSource]string{
	ReleaseOnCompletion: "Order completed: escrow released",
	ReleaseOnDispute:    "Dispute resolved: escrow released to seller",
}

// Escrow moves held order funds to the seller or back to the buyer. Every
// method expects the order to have been locked in tx by the caller and keeps
// the in-memory copy in sync with what it writes.
type Escrow struct {
	repo    Repository
	ledger  ledger
	outbox  outboxPublisher
	metrics *metrics.EscrowMetrics
}

// NewEscrow builds the escrow settlement helper. A nil m disables metrics.
func NewEscrow(repo Repository, ledger ledger, outbox outboxPublisher, m *metrics.EscrowMetrics) (*Escrow, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet ledger required")
	}
	if outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	return &Escrow{repo: repo, ledger: ledger, outbox: outbox, metrics: m}, nil
}

// Release credits the seller with the remaining escrow and marks it released.
// It is a no-op once escrow is no longer held, so the same funds are never
// paid twice. The returned amount is what this call credited.
func (e *Escrow) Release(ctx context.Context, tx *gorm.DB, order *models.Order, source ReleaseSource) (decimal.Decimal, error) {
	if order.EscrowStatus != enums.EscrowStatusHeld {
		return decimal.Zero, nil
	}
	if err := requireCaptured(order); err != nil {
		return decimal.Zero, err
	}

	net := money.Round2(order.EscrowAmount)
	if net.IsPositive() {
		reason, ok := releaseReasons[source]
		if !ok {
			reason = "Escrow released"
		}
		orderID := order.ID
		_, err := e.ledger.Credit(ctx, tx, wallet.Movement{
			UserID:  order.SellerID,
			Amount:  net,
			Reason:  reason,
			OrderID: &orderID,
			Meta: map[string]any{
				"grossAmount":      order.Amount.StringFixed(money.Places),
				"commissionAmount": order.CommissionAmount.StringFixed(money.Places),
				"netReleased":      net.StringFixed(money.Places),
			},
		})
		if err != nil {
			return decimal.Zero, err
		}
	}

	if err := e.repo.WithTx(tx).UpdateOrder(ctx, order.ID, map[string]any{
		"escrow_status": enums.EscrowStatusReleased,
	}); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark escrow released")
	}
	order.EscrowStatus = enums.EscrowStatusReleased

	if err := e.emitReleased(ctx, tx, order, net, source); err != nil {
		return decimal.Zero, err
	}
	e.metrics.ObserveRelease(string(source), net)
	return net, nil
}

// Refund returns the held escrow to the buyer and completes the order.
// Escrow that was already released or refunded cannot be refunded.
func (e *Escrow) Refund(ctx context.Context, tx *gorm.DB, order *models.Order, disputeID uuid.UUID) (decimal.Decimal, error) {
	if order.EscrowStatus != enums.EscrowStatusHeld {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeStateConflict, "escrow already settled for this order").
			WithReason(pkgerrors.ReasonEscrowSettled)
	}
	if err := requireCaptured(order); err != nil {
		return decimal.Zero, err
	}

	amount := money.Round2(order.EscrowAmount)
	if amount.IsPositive() {
		orderID := order.ID
		_, err := e.ledger.Credit(ctx, tx, wallet.Movement{
			UserID:  order.BuyerID,
			Amount:  amount,
			Reason:  "Dispute resolved: escrow refunded to buyer",
			OrderID: &orderID,
			Meta: map[string]any{
				"disputeId":   disputeID.String(),
				"grossAmount": order.Amount.StringFixed(money.Places),
				"refunded":    amount.StringFixed(money.Places),
			},
		})
		if err != nil {
			return decimal.Zero, err
		}
	}

	if err := e.repo.WithTx(tx).UpdateOrder(ctx, order.ID, map[string]any{
		"escrow_status": enums.EscrowStatusRefunded,
		"status":        enums.OrderStatusCompleted,
	}); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark escrow refunded")
	}
	order.EscrowStatus = enums.EscrowStatusRefunded
	order.Status = enums.OrderStatusCompleted

	if err := e.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEscrowRefunded,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.EscrowRefundedEvent{
			OrderID:   order.ID,
			BuyerID:   order.BuyerID,
			DisputeID: disputeID,
			Amount:    amount,
		},
	}); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit escrow refunded")
	}
	e.metrics.ObserveRefund(amount)
	return amount, nil
}

func (e *Escrow) emitReleased(ctx context.Context, tx *gorm.DB, order *models.Order, net decimal.Decimal, source ReleaseSource) error {
	err := e.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEscrowReleased,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.EscrowReleasedEvent{
			OrderID:     order.ID,
			SellerID:    order.SellerID,
			NetReleased: net,
			Source:      string(source),
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit escrow released")
	}
	return nil
}

// requireCaptured stops escrow from paying out funds that were never taken
// from the buyer.
func requireCaptured(order *models.Order) error {
	if order.PaymentStatus.Captured() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order payment has not been captured")
}
