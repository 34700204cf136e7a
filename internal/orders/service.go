package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/gigescrow-backend/internal/authz"
	"github.com/angelmondragon/gigescrow-backend/internal/notifications"
	"github.com/angelmondragon/gigescrow-backend/internal/wallet"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
	"github.com/angelmondragon/gigescrow-backend/pkg/metrics"
	"github.com/angelmondragon/gigescrow-backend/pkg/money"
	"github.com/angelmondragon/gigescrow-backend/pkg/outbox"
	"github.com/angelmondragon/gigescrow-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/gigescrow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service runs the post-checkout order lifecycle.
type Service interface {
	UpdateStatus(ctx context.Context, actor authz.Actor, input UpdateStatusInput) (*StatusResult, error)
	CompleteMilestone(ctx context.Context, actor authz.Actor, orderID, milestoneID uuid.UUID) (*MilestoneResult, error)
	Get(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*OrderDTO, error)
	ListForBuyer(ctx context.Context, actor authz.Actor, params ListParams) (*OrderList, error)
	ListForSeller(ctx context.Context, actor authz.Actor, params ListParams) (*OrderList, error)
	SellerPerformance(ctx context.Context, actor authz.Actor, sellerID uuid.UUID) (*PerformanceDTO, error)
}

// ServiceParams wires the lifecycle service.
type ServiceParams struct {
	Repo       Repository
	Tx         txRunner
	Escrow     *Escrow
	Ledger     ledger
	Outbox     outboxPublisher
	Notifier   notifier
	Reputation reputationRecomputer
	Metrics    *metrics.EscrowMetrics
	Logger     *logger.Logger
}

type service struct {
	repo       Repository
	tx         txRunner
	escrow     *Escrow
	ledger     ledger
	outbox     outboxPublisher
	notifier   notifier
	reputation reputationRecomputer
	metrics    *metrics.EscrowMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService wires the order lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	case params.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case params.Escrow == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "escrow required")
	case params.Ledger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet ledger required")
	case params.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	case params.Notifier == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	case params.Reputation == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reputation service required")
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		escrow:     params.Escrow,
		ledger:     params.Ledger,
		outbox:     params.Outbox,
		notifier:   params.Notifier,
		reputation: params.Reputation,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor authz.Actor, input UpdateStatusInput) (*StatusResult, error) {
	if err := authz.Authenticated(actor); err != nil {
		return nil, err
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Status != enums.OrderStatusAccepted && input.Status != enums.OrderStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be accepted or completed")
	}

	started := time.Now()
	var result *StatusResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, input.OrderID)
		if err != nil {
			return mapOrderErr(err)
		}
		if err := authz.Require(actor, order.SellerID, "only the seller or an admin can update this order"); err != nil {
			return err
		}

		from := order.Status
		if !from.CanTransitionTo(input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("invalid status transition from %s to %s", from, input.Status)).
				WithReason(pkgerrors.ReasonInvalidTransition)
		}

		released := decimal.Zero
		if input.Status == enums.OrderStatusCompleted {
			incomplete, err := repo.CountIncompleteMilestones(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count milestones")
			}
			if incomplete > 0 {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "complete all milestones before completing the order").
					WithReason(pkgerrors.ReasonMilestonesIncomplete)
			}
			if released, err = s.escrow.Release(ctx, tx, order, ReleaseOnCompletion); err != nil {
				return err
			}
		}

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": input.Status}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = input.Status

		if input.Status == enums.OrderStatusCompleted {
			if _, err := s.reputation.Recompute(ctx, tx, order.SellerID); err != nil {
				return err
			}
		}
		if err := s.emitStatusChange(ctx, tx, actor, order, from, released); err != nil {
			return err
		}

		reloaded, err := repo.FindOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		result = &StatusResult{Order: FromModel(*reloaded), ReleasedAmount: released}
		return nil
	})
	s.metrics.ObserveTx(metrics.OpUpdateStatus, started, err)
	if err != nil {
		return nil, err
	}
	s.logStatus(ctx, result.Order, "order status updated")
	return result, nil
}

func (s *service) emitStatusChange(ctx context.Context, tx *gorm.DB, actor authz.Actor, order *models.Order, from enums.OrderStatus, released decimal.Decimal) error {
	actorRef := &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:  order.ID,
			BuyerID:  order.BuyerID,
			SellerID: order.SellerID,
			From:     from,
			To:       order.Status,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order status changed")
	}

	orderMeta := map[string]any{"orderId": order.ID.String(), "status": order.Status, "escrowStatus": order.EscrowStatus}
	if order.Status == enums.OrderStatusAccepted {
		if err := s.notifier.Notify(ctx, tx, notifications.Request{
			UserID:  order.BuyerID,
			Type:    enums.NotificationTypeOrderAccepted,
			Title:   "Order Accepted",
			Message: fmt.Sprintf("Seller accepted order %s.", order.ID),
			Meta:    orderMeta,
		}); err != nil {
			return err
		}
	}
	if err := s.notifier.Notify(ctx, tx, notifications.Request{
		UserID:  order.BuyerID,
		Type:    enums.NotificationTypeOrderStatus,
		Title:   "Order Status Updated",
		Message: fmt.Sprintf("Your order %s status changed to %s.", order.ID, order.Status),
		Meta:    orderMeta,
	}); err != nil {
		return err
	}
	if order.Status != enums.OrderStatusCompleted {
		return nil
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCompleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef,
		Data: payloads.OrderCompletedEvent{
			OrderID:          order.ID,
			BuyerID:          order.BuyerID,
			SellerID:         order.SellerID,
			Amount:           order.Amount,
			CommissionAmount: order.CommissionAmount,
			CompletedAt:      s.now(),
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order completed")
	}
	// Milestones already paid the seller out.
	if !released.IsPositive() {
		return nil
	}
	return s.notifier.Notify(ctx, tx, notifications.Request{
		UserID:  order.SellerID,
		Type:    enums.NotificationTypeEscrowReleased,
		Title:   "Escrow Released",
		Message: fmt.Sprintf("Funds for order %s were released to your wallet.", order.ID),
		Meta: map[string]any{
			"orderId":    order.ID.String(),
			"released":   released.StringFixed(money.Places),
			"commission": order.CommissionAmount.StringFixed(money.Places),
		},
	})
}

// CompleteMilestone releases one milestone's amount net of commission. The
// remaining escrow drops by the milestone's gross amount and the platform
// cut is added to the order's commission.
func (s *service) CompleteMilestone(ctx context.Context, actor authz.Actor, orderID, milestoneID uuid.UUID) (*MilestoneResult, error) {
	if err := authz.Authenticated(actor); err != nil {
		return nil, err
	}
	if orderID == uuid.Nil || milestoneID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and milestone id required")
	}

	started := time.Now()
	var result *MilestoneResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			return mapOrderErr(err)
		}
		if err := authz.Require(actor, order.SellerID, "only the seller or an admin can complete milestones"); err != nil {
			return err
		}

		milestone, err := repo.LockMilestone(ctx, order.ID, milestoneID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "milestone not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load milestone")
		}
		if milestone.Status == enums.MilestoneStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "milestone already completed").
				WithReason(pkgerrors.ReasonMilestoneCompleted)
		}
		if order.EscrowStatus != enums.EscrowStatusHeld {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "escrow already settled for this order").
				WithReason(pkgerrors.ReasonEscrowSettled)
		}

		gross := money.Round2(milestone.Amount)
		remaining := money.Round2(order.EscrowAmount.Sub(gross))
		if remaining.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "milestone amount exceeds the remaining escrow").
				WithDetails(map[string]any{
					"milestone_amount": gross.StringFixed(money.Places),
					"escrow_amount":    order.EscrowAmount.StringFixed(money.Places),
				}).
				WithReason(pkgerrors.ReasonEscrowOverdrawn)
		}

		now := s.now()
		if err := repo.CompleteMilestone(ctx, milestone.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete milestone")
		}
		milestone.Status = enums.MilestoneStatusCompleted
		milestone.CompletedAt = &now

		net, commission := money.Split(gross, order.PlatformFeePercent)
		if _, err := s.ledger.Credit(ctx, tx, wallet.Movement{
			UserID:  order.SellerID,
			Amount:  net,
			Reason:  "Milestone completed: " + milestone.Title,
			OrderID: &order.ID,
			Meta: map[string]any{
				"milestoneId": milestone.ID.String(),
				"gross":       gross.StringFixed(money.Places),
				"commission":  commission.StringFixed(money.Places),
			},
		}); err != nil {
			return err
		}

		order.EscrowAmount = remaining
		order.CommissionAmount = money.Round2(order.CommissionAmount.Add(commission))
		updates := map[string]any{
			"escrow_amount":     order.EscrowAmount,
			"commission_amount": order.CommissionAmount,
		}
		fullyReleased := !remaining.IsPositive()
		if fullyReleased {
			updates["escrow_status"] = enums.EscrowStatusReleased
			order.EscrowStatus = enums.EscrowStatusReleased
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order escrow")
		}
		s.metrics.ObserveRelease(string(ReleaseOnMilestone), net)

		if fullyReleased {
			if err := s.escrow.emitReleased(ctx, tx, order, net, ReleaseOnMilestone); err != nil {
				return err
			}
		}
		if err := s.notifier.Notify(ctx, tx, notifications.Request{
			UserID:  order.BuyerID,
			Type:    enums.NotificationTypeMilestoneCompleted,
			Title:   "Milestone Completed",
			Message: fmt.Sprintf("Milestone %q completed for order %s.", milestone.Title, order.ID),
			Meta:    map[string]any{"orderId": order.ID.String(), "milestoneId": milestone.ID.String()},
		}); err != nil {
			return err
		}
		if _, err := s.reputation.Recompute(ctx, tx, order.SellerID); err != nil {
			return err
		}

		reloaded, err := repo.FindOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		result = &MilestoneResult{
			Milestone:  MilestoneFromModel(*milestone),
			Order:      FromModel(*reloaded),
			NetCredit:  net,
			Commission: commission,
		}
		return nil
	})
	s.metrics.ObserveTx(metrics.OpCompleteMilestone, started, err)
	if err != nil {
		return nil, err
	}
	s.logStatus(ctx, result.Order, "milestone completed")
	return result, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*OrderDTO, error) {
	if err := authz.Authenticated(actor); err != nil {
		return nil, err
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, mapOrderErr(err)
	}
	if !authz.CanAny(actor, order.BuyerID, order.SellerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order is not visible to this user")
	}
	dto := FromModel(*order)
	return &dto, nil
}

// ListForBuyer returns the actor's purchases; admins see every order.
func (s *service) ListForBuyer(ctx context.Context, actor authz.Actor, params ListParams) (*OrderList, error) {
	if err := authz.Authenticated(actor); err != nil {
		return nil, err
	}
	query := listParams{Limit: params.Limit, Status: params.Status}
	if !actor.IsAdmin() {
		query.BuyerID = &actor.UserID
	}
	return s.list(ctx, query, params.Cursor)
}

// ListForSeller returns orders placed with the actor; admins see every order.
func (s *service) ListForSeller(ctx context.Context, actor authz.Actor, params ListParams) (*OrderList, error) {
	if err := authz.RequireRole(actor, enums.UserRoleSeller); err != nil {
		return nil, err
	}
	query := listParams{Limit: params.Limit, Status: params.Status}
	if !actor.IsAdmin() {
		query.SellerID = &actor.UserID
	}
	return s.list(ctx, query, params.Cursor)
}

func (s *service) list(ctx context.Context, query listParams, rawCursor string) (*OrderList, error) {
	if rawCursor != "" {
		cursor, err := pagination.ParseCursor(rawCursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	list := &OrderList{Orders: make([]OrderDTO, 0, len(rows))}
	for _, row := range rows {
		list.Orders = append(list.Orders, FromModel(row))
	}
	if next != nil {
		list.Cursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func (s *service) SellerPerformance(ctx context.Context, actor authz.Actor, sellerID uuid.UUID) (*PerformanceDTO, error) {
	if err := authz.Require(actor, sellerID, "cannot view another seller's performance"); err != nil {
		return nil, err
	}
	stats, err := s.repo.SellerStats(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate seller orders")
	}
	rate := decimal.Zero
	if stats.TotalOrders > 0 {
		rate = decimal.NewFromInt(stats.CompletedOrders).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(stats.TotalOrders)).
			Round(1)
	}
	return &PerformanceDTO{
		SellerID:        sellerID,
		TotalOrders:     stats.TotalOrders,
		CompletedOrders: stats.CompletedOrders,
		ActiveOrders:    stats.TotalOrders - stats.CompletedOrders,
		CompletionRate:  rate,
		EscrowHeld:      money.Round2(stats.EscrowHeld),
		NetReleased:     money.Round2(stats.NetReleased),
		Commission:      money.Round2(stats.Commission),
	}, nil
}

func (s *service) logStatus(ctx context.Context, order OrderDTO, msg string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"status":        order.Status,
		"escrow_status": order.EscrowStatus,
		"escrow_amount": order.EscrowAmount.String(),
	})
	s.logg.Info(logCtx, msg)
}

func mapOrderErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
