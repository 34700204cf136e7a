package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/gigescrow-backend/internal/authz"
	"github.com/angelmondragon/gigescrow-backend/internal/catalog"
	"github.com/angelmondragon/gigescrow-backend/internal/checkout/helpers"
	"github.com/angelmondragon/gigescrow-backend/internal/coupons"
	"github.com/angelmondragon/gigescrow-backend/internal/notifications"
	"github.com/angelmondragon/gigescrow-backend/internal/orders"
	"github.com/angelmondragon/gigescrow-backend/internal/users"
	pkgcheckout "github.com/angelmondragon/gigescrow-backend/pkg/checkout"
	"github.com/angelmondragon/gigescrow-backend/pkg/config"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
	"github.com/angelmondragon/gigescrow-backend/pkg/metrics"
	"github.com/angelmondragon/gigescrow-backend/pkg/money"
	"github.com/angelmondragon/gigescrow-backend/pkg/outbox"
	"github.com/angelmondragon/gigescrow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type couponEvaluator interface {
	Evaluate(ctx context.Context, tx *gorm.DB, code string, base decimal.Decimal) (*coupons.Evaluation, error)
	Redeem(ctx context.Context, tx *gorm.DB, couponID uuid.UUID) error
}

type holdRecorder interface {
	RecordHold(ctx context.Context, tx *gorm.DB, buyerID, orderID uuid.UUID, amount decimal.Decimal, meta map[string]any) (*models.WalletTransaction, error)
}

type outboxPublisher interface {
	EmitBatch(ctx context.Context, tx *gorm.DB, events []outbox.DomainEvent) error
}

type notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, req notifications.Request) error
}

// Item is one service in a checkout request.
type Item = helpers.ItemRequest

// Milestone is one buyer-proposed milestone of an item.
type Milestone = helpers.MilestoneRequest

// Input is a checkout request. ServiceIDs is the legacy single-package form
// and is ignored when Items is non-empty.
type Input struct {
	Items      []Item
	ServiceIDs []uuid.UUID
	CouponCode string
}

// CouponSummary describes the coupon applied to a checkout.
type CouponSummary struct {
	Code          string             `json:"code"`
	DiscountType  enums.DiscountType `json:"discount_type"`
	DiscountValue decimal.Decimal    `json:"discount_value"`
}

// Result is the created orders plus the coupon's effect breakdown.
// TotalAmount sums the per-order amounts and may drift from FinalAmount by
// per-item rounding.
type Result struct {
	Orders            []orders.OrderDTO `json:"orders"`
	GrossTotal        decimal.Decimal   `json:"gross_total"`
	CouponDiscount    decimal.Decimal   `json:"coupon_discount"`
	FinalAmount       decimal.Decimal   `json:"final_amount"`
	TotalAmount       decimal.Decimal   `json:"total_amount"`
	CommissionPercent decimal.Decimal   `json:"commission_percent"`
	Coupon            *CouponSummary    `json:"coupon"`
}

// Service executes checkout orchestration.
type Service interface {
	Execute(ctx context.Context, actor authz.Actor, input Input) (*Result, error)
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	Tx       txRunner
	Catalog  catalog.Repository
	Orders   orders.Repository
	Users    *users.Repository
	Coupons  couponEvaluator
	Ledger   holdRecorder
	Outbox   outboxPublisher
	Notifier notifier
	Escrow   config.EscrowConfig
	Metrics  *metrics.EscrowMetrics
	Logger   *logger.Logger
}

type service struct {
	tx         txRunner
	catalog    catalog.Repository
	orders     orders.Repository
	users      *users.Repository
	coupons    couponEvaluator
	ledger     holdRecorder
	outbox     outboxPublisher
	notifier   notifier
	feePercent decimal.Decimal
	ringLimit  int
	metrics    *metrics.EscrowMetrics
	logg       *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tx runner required")
	case params.Catalog == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
	case params.Orders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	case params.Users == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	case params.Coupons == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "coupon evaluator required")
	case params.Ledger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet ledger required")
	case params.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	case params.Notifier == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	limit := params.Escrow.ViewedCategoryLimit
	if limit <= 0 {
		limit = 20
	}
	return &service{
		tx:         params.Tx,
		catalog:    params.Catalog,
		orders:     params.Orders,
		users:      params.Users,
		coupons:    params.Coupons,
		ledger:     params.Ledger,
		outbox:     params.Outbox,
		notifier:   params.Notifier,
		feePercent: money.Round2(params.Escrow.CommissionPercent),
		ringLimit:  limit,
		metrics:    params.Metrics,
		logg:       params.Logger,
	}, nil
}

type draft struct {
	item    Item
	service models.Service
	gross   decimal.Decimal
}

// Execute turns the request into one held-escrow order per item. Every write
// happens in one transaction; any failure leaves no orders, no coupon usage
// and no ledger entries behind.
func (s *service) Execute(ctx context.Context, actor authz.Actor, input Input) (*Result, error) {
	if err := authz.RequireRole(actor, enums.UserRoleBuyer); err != nil {
		return nil, err
	}
	items, err := helpers.NormalizeItems(input.Items, input.ServiceIDs)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	var (
		result  *Result
		created []models.Order
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogRepo := s.catalog.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		ids := helpers.UniqueServiceIDs(items)
		services, err := catalogRepo.FindApprovedByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load services")
		}
		if len(services) != len(ids) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "some services are unavailable for checkout")
		}

		drafts := make([]draft, 0, len(items))
		prices := make([]decimal.Decimal, 0, len(items))
		for _, item := range items {
			svc := services[item.ServiceID]
			price, err := catalog.ResolvePrice(&svc, item.PackageType)
			if err != nil {
				return err
			}
			drafts = append(drafts, draft{item: item, service: svc, gross: price})
			prices = append(prices, price)
		}

		gross := helpers.GrossTotal(prices)
		effective := gross
		discount := decimal.Zero
		var coupon *models.Coupon
		if input.CouponCode != "" {
			eval, err := s.coupons.Evaluate(ctx, tx, input.CouponCode, gross)
			if err != nil {
				return err
			}
			if err := s.coupons.Redeem(ctx, tx, eval.Coupon.ID); err != nil {
				return err
			}
			coupon = eval.Coupon
			effective = eval.FinalAmount
			discount = eval.Discount
		}

		for _, d := range drafts {
			amount := money.Proportional(d.gross, gross, effective)
			escrow, commission := money.Split(amount, s.feePercent)

			order := models.Order{
				ID:                 uuid.New(),
				BuyerID:            actor.UserID,
				SellerID:           d.service.SellerID,
				ServiceID:          d.service.ID,
				Amount:             amount,
				PackageType:        d.item.PackageType,
				Status:             enums.OrderStatusPending,
				PaymentStatus:      enums.PaymentStatusPaid,
				EscrowStatus:       enums.EscrowStatusHeld,
				EscrowAmount:       escrow,
				CommissionAmount:   commission,
				PlatformFeePercent: s.feePercent,
			}
			if coupon != nil {
				order.CouponID = &coupon.ID
			}
			if err := ordersRepo.CreateOrder(ctx, &order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
			}

			plan := pkgcheckout.MilestonePlanInput{ServiceID: d.service.ID, EscrowAmount: escrow}
			for _, m := range d.item.Milestones {
				plan.Amounts = append(plan.Amounts, m.Amount)
			}
			if err := pkgcheckout.ValidateMilestonePlans([]pkgcheckout.MilestonePlanInput{plan}); err != nil {
				return err
			}
			if len(d.item.Milestones) > 0 {
				milestones := make([]models.Milestone, 0, len(d.item.Milestones))
				for i, m := range d.item.Milestones {
					milestones = append(milestones, models.Milestone{
						ID:       uuid.New(),
						OrderID:  order.ID,
						Title:    m.Title,
						Amount:   money.Round2(m.Amount),
						Position: i,
						Status:   enums.MilestoneStatusPending,
					})
				}
				if err := ordersRepo.CreateMilestones(ctx, milestones); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create milestones")
				}
				order.Milestones = milestones
			}

			if err := catalogRepo.IncrementPurchases(ctx, d.service.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment purchases")
			}
			if err := s.pushViewedCategory(ctx, tx, actor.UserID, d.service.Category); err != nil {
				return err
			}
			if _, err := s.ledger.RecordHold(ctx, tx, actor.UserID, order.ID, amount, map[string]any{
				"commissionAmount": commission.StringFixed(money.Places),
				"escrowAmount":     escrow.StringFixed(money.Places),
				"serviceId":        d.service.ID.String(),
			}); err != nil {
				return err
			}
			created = append(created, order)
		}

		if err := s.emitOrdersCreated(ctx, tx, actor, created); err != nil {
			return err
		}

		if err := s.notifyParties(ctx, tx, actor.UserID, created); err != nil {
			return err
		}

		result = &Result{
			Orders:            make([]orders.OrderDTO, 0, len(created)),
			GrossTotal:        gross,
			CouponDiscount:    discount,
			FinalAmount:       effective,
			TotalAmount:       helpers.TotalAmount(created),
			CommissionPercent: s.feePercent,
		}
		for _, order := range created {
			result.Orders = append(result.Orders, orders.FromModel(order))
		}
		if coupon != nil {
			result.Coupon = &CouponSummary{
				Code:          coupon.Code,
				DiscountType:  coupon.DiscountType,
				DiscountValue: coupon.DiscountValue,
			}
		}
		return nil
	})
	s.metrics.ObserveTx(metrics.OpCheckout, started, err)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveCheckout(len(result.Orders), result.Coupon != nil)

	if s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, actor.UserID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"orders":       len(result.Orders),
			"gross_total":  result.GrossTotal.String(),
			"final_amount": result.FinalAmount.String(),
		})
		s.logg.Info(logCtx, "checkout completed")
	}
	return result, nil
}

func (s *service) pushViewedCategory(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID, category string) error {
	store := s.users.WithTx(tx)
	buyer, err := store.LockByID(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "buyer not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer")
	}
	ring := buyer.ViewedCategories.Push(helpers.NormalizeCategory(category), s.ringLimit)
	if err := store.UpdateViewedCategories(ctx, buyer.ID, ring); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update viewed categories")
	}
	return nil
}

func (s *service) emitOrdersCreated(ctx context.Context, tx *gorm.DB, actor authz.Actor, created []models.Order) error {
	events := make([]outbox.DomainEvent, 0, len(created))
	for _, order := range created {
		events = append(events, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
			Data: payloads.OrderCreatedEvent{
				OrderID:          order.ID,
				BuyerID:          order.BuyerID,
				SellerID:         order.SellerID,
				ServiceID:        order.ServiceID,
				PackageType:      order.PackageType,
				Amount:           order.Amount,
				EscrowAmount:     order.EscrowAmount,
				CommissionAmount: order.CommissionAmount,
				CouponID:         order.CouponID,
			},
		})
	}
	if err := s.outbox.EmitBatch(ctx, tx, events); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
	}
	return nil
}

func (s *service) notifyParties(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID, created []models.Order) error {
	for _, group := range helpers.GroupEscrowBySeller(created) {
		if err := s.notifier.Notify(ctx, tx, notifications.Request{
			UserID:  group.SellerID,
			Type:    enums.NotificationTypeOrderCreated,
			Title:   "New Order Received",
			Message: fmt.Sprintf("A new order worth $%s is now in escrow.", group.Escrow.StringFixed(money.Places)),
			Meta:    map[string]any{"buyerId": buyerID.String(), "orders": group.OrderCount},
		}); err != nil {
			return err
		}
	}

	orderIDs := make([]string, 0, len(created))
	for _, order := range created {
		orderIDs = append(orderIDs, order.ID.String())
	}
	return s.notifier.Notify(ctx, tx, notifications.Request{
		UserID:  buyerID,
		Type:    enums.NotificationTypeCheckoutSuccess,
		Title:   "Checkout Successful",
		Message: fmt.Sprintf("Your checkout is complete for %d item(s).", len(created)),
		Meta:    map[string]any{"orderIds": orderIDs},
	})
}
