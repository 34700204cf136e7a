package withdrawals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/gigescrow-backend/internal/authz"
	"github.com/angelmondragon/gigescrow-backend/internal/notifications"
	"github.com/angelmondragon/gigescrow-backend/internal/users"
	"github.com/angelmondragon/gigescrow-backend/internal/wallet"
	dbpkg "github.com/angelmondragon/gigescrow-backend/pkg/db"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
	"github.com/angelmondragon/gigescrow-backend/pkg/metrics"
	"github.com/angelmondragon/gigescrow-backend/pkg/money"
	"github.com/angelmondragon/gigescrow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxNoteLength = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledger interface {
	Debit(ctx context.Context, tx *gorm.DB, movement wallet.Movement) (*models.WalletTransaction, error)
}

type notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, req notifications.Request) error
}

// RequestDTO is the transport shape of a withdrawal request.
type RequestDTO struct {
	ID          uuid.UUID              `json:"id"`
	SellerID    uuid.UUID              `json:"seller_id"`
	Amount      decimal.Decimal        `json:"amount"`
	Status      enums.WithdrawalStatus `json:"status"`
	Note        *string                `json:"note,omitempty"`
	RequestedAt time.Time              `json:"requested_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
}

// RequestList wraps a page of withdrawal requests.
type RequestList struct {
	Requests []RequestDTO `json:"requests"`
	Cursor   string       `json:"cursor"`
}

// ProcessInput is an admin's decision on a pending request.
type ProcessInput struct {
	RequestID uuid.UUID
	Status    enums.WithdrawalStatus
	Note      string
}

// Service handles seller payout requests.
type Service interface {
	Request(ctx context.Context, actor authz.Actor, amount decimal.Decimal) (*RequestDTO, error)
	Process(ctx context.Context, actor authz.Actor, input ProcessInput) (*RequestDTO, error)
	ListMine(ctx context.Context, actor authz.Actor, params pagination.Params) (*RequestList, error)
	ListPending(ctx context.Context, actor authz.Actor, params pagination.Params) (*RequestList, error)
}

// ServiceParams wires the withdrawal workflow.
type ServiceParams struct {
	Repo     Repository
	Users    *users.Repository
	Ledger   ledger
	Tx       txRunner
	Notifier notifier
	Metrics  *metrics.EscrowMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	users    *users.Repository
	ledger   ledger
	tx       txRunner
	notifier notifier
	metrics  *metrics.EscrowMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the withdrawal service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "withdrawals repository required")
	case params.Users == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	case params.Ledger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet ledger required")
	case params.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case params.Notifier == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	return &service{
		repo:     params.Repo,
		users:    params.Users,
		ledger:   params.Ledger,
		tx:       params.Tx,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Request files a payout request. The balance is checked now and again when
// an admin approves, since the wallet may change in between.
func (s *service) Request(ctx context.Context, actor authz.Actor, amount decimal.Decimal) (*RequestDTO, error) {
	if err := authz.RequireRole(actor, enums.UserRoleSeller); err != nil {
		return nil, err
	}
	amount = money.Round2(amount)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than 0")
	}

	var created *models.WithdrawalRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		seller, err := s.users.WithTx(tx).LockByID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		if seller.Wallet.LessThan(amount) {
			return insufficient()
		}

		repo := s.repo.WithTx(tx)
		pending, err := repo.FindPendingBySeller(ctx, seller.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending withdrawals")
		}
		if pending != nil {
			return pendingExists()
		}

		request := &models.WithdrawalRequest{
			ID:          uuid.New(),
			SellerID:    seller.ID,
			Amount:      amount,
			Status:      enums.WithdrawalStatusPending,
			RequestedAt: s.now(),
		}
		if err := repo.Create(ctx, request); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pendingExists()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdrawal request")
		}
		created = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(*created)
	s.log(ctx, dto, "withdrawal requested")
	return &dto, nil
}

func (s *service) Process(ctx context.Context, actor authz.Actor, input ProcessInput) (*RequestDTO, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if input.Status != enums.WithdrawalStatusApproved && input.Status != enums.WithdrawalStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be approved or rejected")
	}
	note := strings.TrimSpace(input.Note)
	if utf8.RuneCountInString(note) > maxNoteLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "note too long")
	}

	started := time.Now()
	var processed *models.WithdrawalRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := repo.LockByID(ctx, input.RequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal request")
		}
		if request.Status != enums.WithdrawalStatusPending {
			return pkgerrors.New(pkgerrors.CodeConflict, "withdrawal request already processed").
				WithReason(pkgerrors.ReasonWithdrawalProcessed)
		}

		if input.Status == enums.WithdrawalStatusApproved {
			_, err := s.ledger.Debit(ctx, tx, wallet.Movement{
				UserID: request.SellerID,
				Amount: request.Amount,
				Reason: "Withdrawal approved",
				Meta:   map[string]any{"withdrawalRequestId": request.ID.String()},
			})
			if err != nil {
				return err
			}
		}

		now := s.now()
		updates := map[string]any{"status": input.Status, "processed_at": now}
		request.Status = input.Status
		request.ProcessedAt = &now
		if note != "" {
			updates["note"] = note
			request.Note = &note
		}
		if err := repo.Update(ctx, request.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update withdrawal request")
		}

		if err := s.notifier.Notify(ctx, tx, notifications.Request{
			UserID:  request.SellerID,
			Type:    enums.NotificationTypeWithdrawalUpdate,
			Title:   "Withdrawal Request Updated",
			Message: fmt.Sprintf("Your withdrawal request %s was %s.", request.ID, request.Status),
			Meta:    map[string]any{"requestId": request.ID.String(), "status": request.Status},
		}); err != nil {
			return err
		}
		processed = request
		return nil
	})
	s.metrics.ObserveTx(metrics.OpWithdrawal, started, err)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*processed)
	s.log(ctx, dto, "withdrawal processed")
	return &dto, nil
}

func (s *service) ListMine(ctx context.Context, actor authz.Actor, params pagination.Params) (*RequestList, error) {
	if err := authz.RequireRole(actor, enums.UserRoleSeller); err != nil {
		return nil, err
	}
	return s.list(ctx, listParams{SellerID: &actor.UserID, Limit: params.Limit}, params.Cursor)
}

func (s *service) ListPending(ctx context.Context, actor authz.Actor, params pagination.Params) (*RequestList, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	status := enums.WithdrawalStatusPending
	return s.list(ctx, listParams{Status: &status, Limit: params.Limit}, params.Cursor)
}

func (s *service) list(ctx context.Context, query listParams, rawCursor string) (*RequestList, error) {
	if rawCursor != "" {
		cursor, err := pagination.ParseCursor(rawCursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list withdrawal requests")
	}
	list := &RequestList{Requests: make([]RequestDTO, 0, len(rows))}
	for _, row := range rows {
		list.Requests = append(list.Requests, toDTO(row))
	}
	if next != nil {
		list.Cursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func (s *service) log(ctx context.Context, dto RequestDTO, msg string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithUserID(ctx, dto.SellerID.String())
	logCtx = s.logg.WithWithdrawalID(logCtx, dto.ID.String())
	logCtx = s.logg.WithAmount(logCtx, "amount", dto.Amount)
	logCtx = s.logg.WithField(logCtx, "status", dto.Status)
	s.logg.Info(logCtx, msg)
}

func toDTO(row models.WithdrawalRequest) RequestDTO {
	return RequestDTO{
		ID:          row.ID,
		SellerID:    row.SellerID,
		Amount:      row.Amount,
		Status:      row.Status,
		Note:        row.Note,
		RequestedAt: row.RequestedAt,
		ProcessedAt: row.ProcessedAt,
	}
}

func insufficient() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "insufficient wallet balance").
		WithReason(pkgerrors.ReasonInsufficientBalance)
}

func pendingExists() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "a pending withdrawal request already exists").
		WithReason(pkgerrors.ReasonPendingWithdrawalExists)
}
