package disputes

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/gigescrow-backend/internal/authz"
	"github.com/angelmondragon/gigescrow-backend/internal/notifications"
	"github.com/angelmondragon/gigescrow-backend/internal/orders"
	"github.com/angelmondragon/gigescrow-backend/internal/reputation"
	dbpkg "github.com/angelmondragon/gigescrow-backend/pkg/db"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
	"github.com/angelmondragon/gigescrow-backend/pkg/metrics"
	"github.com/angelmondragon/gigescrow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	minReasonLength = 10
	maxReasonLength = 500
	maxNotesLength  = 1500
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, req notifications.Request) error
}

type reputationRecomputer interface {
	Recompute(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) (*reputation.Snapshot, error)
}

// Service raises and settles disputes over held escrow.
type Service interface {
	Raise(ctx context.Context, actor authz.Actor, input RaiseInput) (*DisputeDTO, error)
	Resolve(ctx context.Context, actor authz.Actor, input ResolveInput) (*ResolveResult, error)
	ListMine(ctx context.Context, actor authz.Actor, params ListParams) (*DisputeList, error)
}

// ServiceParams wires the dispute resolver.
type ServiceParams struct {
	Repo       Repository
	Orders     orders.Repository
	Escrow     *orders.Escrow
	Tx         txRunner
	Notifier   notifier
	Reputation reputationRecomputer
	Metrics    *metrics.EscrowMetrics
	Logger     *logger.Logger
}

type service struct {
	repo       Repository
	orders     orders.Repository
	escrow     *orders.Escrow
	tx         txRunner
	notifier   notifier
	reputation reputationRecomputer
	metrics    *metrics.EscrowMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the dispute service. Metrics and Logger may be nil; the
// rest are required.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "disputes repository required")
	case params.Orders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	case params.Escrow == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "escrow required")
	case params.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case params.Notifier == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	case params.Reputation == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reputation service required")
	}
	return &service{
		repo:       params.Repo,
		orders:     params.Orders,
		escrow:     params.Escrow,
		tx:         params.Tx,
		notifier:   params.Notifier,
		reputation: params.Reputation,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Raise(ctx context.Context, actor authz.Actor, input RaiseInput) (*DisputeDTO, error) {
	if err := authz.Authenticated(actor); err != nil {
		return nil, err
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	reason := strings.TrimSpace(input.Reason)
	if n := utf8.RuneCountInString(reason); n < minReasonLength || n > maxReasonLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("reason should be between %d and %d characters", minReasonLength, maxReasonLength))
	}
	var proof *string
	if raw := strings.TrimSpace(input.ProofURL); raw != "" {
		parsed, err := url.ParseRequestURI(raw)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "proof url must be a valid http(s) url")
		}
		proof = &raw
	}

	var created *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.WithTx(tx).LockOrder(ctx, input.OrderID)
		if err != nil {
			return mapNotFound(err, "order not found", "load order")
		}
		if !authz.Can(actor, order.BuyerID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can raise a dispute for this order")
		}
		if order.Status != enums.OrderStatusAccepted && order.Status != enums.OrderStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "disputes can be raised only for accepted or completed orders").
				WithReason(pkgerrors.ReasonInvalidTransition)
		}

		repo := s.repo.WithTx(tx)
		active, err := repo.FindActiveByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active disputes")
		}
		if active != nil {
			return alreadyActive()
		}

		dispute := &models.Dispute{
			ID:            uuid.New(),
			OrderID:       order.ID,
			RaisedByID:    actor.UserID,
			Reason:        reason,
			ProofURL:      proof,
			Status:        enums.DisputeStatusOpen,
			AdminDecision: enums.DisputeDecisionNone,
		}
		if err := repo.Create(ctx, dispute); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return alreadyActive()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispute")
		}

		if err := s.notifier.Notify(ctx, tx, notifications.Request{
			UserID:  order.SellerID,
			Type:    enums.NotificationTypeDisputeRaised,
			Title:   "Dispute Raised",
			Message: fmt.Sprintf("A dispute has been raised for order %s.", order.ID),
			Meta:    map[string]any{"disputeId": dispute.ID.String(), "orderId": order.ID.String()},
		}); err != nil {
			return err
		}
		created = dispute
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := FromModel(*created)
	s.log(ctx, actor, dto, "dispute raised")
	return &dto, nil
}

// Resolve applies an admin ruling in one transaction. Only a resolved
// dispute moves funds; every ruling recomputes the seller's reputation.
func (s *service) Resolve(ctx context.Context, actor authz.Actor, input ResolveInput) (*ResolveResult, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if input.DisputeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute id required")
	}
	switch input.Status {
	case enums.DisputeStatusUnderReview, enums.DisputeStatusResolved, enums.DisputeStatusRejected:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be under_review, resolved or rejected")
	}
	if input.Decision != "" && !input.Decision.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid admin decision")
	}
	notes := strings.TrimSpace(input.AdminNotes)
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin notes too long")
	}

	started := time.Now()
	var result *ResolveResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		dispute, err := repo.LockByID(ctx, input.DisputeID)
		if err != nil {
			return mapNotFound(err, "dispute not found", "load dispute")
		}
		if dispute.Status.IsTerminal() || dispute.Status == input.Status {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("dispute cannot move from %s to %s", dispute.Status, input.Status)).
				WithReason(pkgerrors.ReasonInvalidTransition)
		}

		decision := input.Decision
		if decision == "" {
			decision = dispute.AdminDecision
		}
		if decision == "" {
			decision = enums.DisputeDecisionNone
		}

		ordersRepo := s.orders.WithTx(tx)
		order, err := ordersRepo.LockOrder(ctx, dispute.OrderID)
		if err != nil {
			return mapNotFound(err, "related order not found", "load order")
		}

		refunded, released := decimal.Zero, decimal.Zero
		if input.Status == enums.DisputeStatusResolved {
			switch decision {
			case enums.DisputeDecisionRefundBuyer:
				if refunded, err = s.escrow.Refund(ctx, tx, order, dispute.ID); err != nil {
					return err
				}
			case enums.DisputeDecisionReleaseSeller:
				if released, err = s.escrow.Release(ctx, tx, order, orders.ReleaseOnDispute); err != nil {
					return err
				}
				if order.Status != enums.OrderStatusCompleted {
					if err := ordersRepo.UpdateOrder(ctx, order.ID, map[string]any{"status": enums.OrderStatusCompleted}); err != nil {
						return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
					}
					order.Status = enums.OrderStatusCompleted
				}
			}
		}

		updates := map[string]any{
			"status":         input.Status,
			"admin_decision": decision,
		}
		if notes != "" {
			updates["admin_notes"] = notes
		}
		if input.Status.IsTerminal() {
			updates["resolved_at"] = s.now()
		}
		if err := repo.Update(ctx, dispute.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update dispute")
		}

		if _, err := s.reputation.Recompute(ctx, tx, order.SellerID); err != nil {
			return err
		}
		for _, userID := range []uuid.UUID{order.BuyerID, order.SellerID} {
			if err := s.notifier.Notify(ctx, tx, notifications.Request{
				UserID:  userID,
				Type:    enums.NotificationTypeDisputeUpdate,
				Title:   "Dispute Updated",
				Message: fmt.Sprintf("Dispute %s is now %s.", dispute.ID, input.Status),
				Meta:    map[string]any{"disputeId": dispute.ID.String(), "decision": decision},
			}); err != nil {
				return err
			}
		}

		stored, err := repo.FindByID(ctx, dispute.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload dispute")
		}
		reloaded, err := ordersRepo.FindOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		result = &ResolveResult{
			Dispute:  FromModel(*stored),
			Order:    orders.FromModel(*reloaded),
			Refunded: refunded,
			Released: released,
		}
		return nil
	})
	s.metrics.ObserveTx(metrics.OpResolveDispute, started, err)
	if err != nil {
		return nil, err
	}
	s.log(ctx, actor, result.Dispute, "dispute updated")
	return result, nil
}

// ListMine returns disputes the actor raised or that target their orders as
// seller. Admins see every dispute.
func (s *service) ListMine(ctx context.Context, actor authz.Actor, params ListParams) (*DisputeList, error) {
	if err := authz.Authenticated(actor); err != nil {
		return nil, err
	}
	query := listParams{Limit: params.Limit, Status: params.Status}
	if !actor.IsAdmin() {
		query.VisibleTo = &actor.UserID
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list disputes")
	}
	list := &DisputeList{Disputes: make([]DisputeDTO, 0, len(rows))}
	for _, row := range rows {
		list.Disputes = append(list.Disputes, FromModel(row))
	}
	if next != nil {
		list.Cursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func (s *service) log(ctx context.Context, actor authz.Actor, dispute DisputeDTO, msg string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithOrderID(ctx, dispute.OrderID.String())
	logCtx = s.logg.WithDisputeID(logCtx, dispute.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"status":   dispute.Status,
		"decision": dispute.AdminDecision,
		"actor_id": actor.UserID.String(),
	})
	s.logg.Info(logCtx, msg)
}

func alreadyActive() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "an active dispute already exists for this order").
		WithReason(pkgerrors.ReasonDisputeAlreadyActive)
}

func mapNotFound(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
