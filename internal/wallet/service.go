package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/angelmondragon/gigescrow-backend/internal/authz"
	"github.com/angelmondragon/gigescrow-backend/internal/users"
	"github.com/angelmondragon/gigescrow-backend/pkg/db"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/money"
	"github.com/angelmondragon/gigescrow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const holdReason = "Escrow hold for order"

// Service records wallet ledger entries and exposes balance reads. Every
// write method takes the caller's transaction so the entry commits or rolls
// back with the balance change it documents.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) (*models.WalletTransaction, error)
	Credit(ctx context.Context, tx *gorm.DB, movement Movement) (*models.WalletTransaction, error)
	Debit(ctx context.Context, tx *gorm.DB, movement Movement) (*models.WalletTransaction, error)
	RecordHold(ctx context.Context, tx *gorm.DB, buyerID, orderID uuid.UUID, amount decimal.Decimal, meta map[string]any) (*models.WalletTransaction, error)

	Balance(ctx context.Context, actor authz.Actor, userID uuid.UUID) (*BalanceView, error)
	History(ctx context.Context, actor authz.Actor, userID uuid.UUID, params pagination.Params) (*HistoryPage, error)
	Reconcile(ctx context.Context, userID uuid.UUID) (*Reconciliation, error)
}

// Entry is one immutable ledger row.
type Entry struct {
	UserID         uuid.UUID
	Type           enums.WalletTransactionType
	Amount         decimal.Decimal
	Reason         string
	RelatedOrderID *uuid.UUID
	Meta           map[string]any
	AffectsBalance bool
}

// Movement is a balance change plus the ledger row documenting it.
type Movement struct {
	UserID  uuid.UUID
	Amount  decimal.Decimal
	Reason  string
	OrderID *uuid.UUID
	Meta    map[string]any
}

type service struct {
	repo  Repository
	users *users.Repository
}

// NewService wires a wallet ledger service.
func NewService(repo Repository, usersRepo *users.Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet repository required")
	}
	if usersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	return &service{repo: repo, users: usersRepo}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, entry Entry) (*models.WalletTransaction, error) {
	if entry.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !entry.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid wallet transaction type")
	}
	if entry.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet transaction amount cannot be negative")
	}
	reason := strings.TrimSpace(entry.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet transaction reason is required")
	}

	row := &models.WalletTransaction{
		UserID:         entry.UserID,
		Type:           entry.Type,
		Amount:         money.Round2(entry.Amount),
		Reason:         reason,
		RelatedOrderID: entry.RelatedOrderID,
		AffectsBalance: entry.AffectsBalance,
	}
	if len(entry.Meta) > 0 {
		raw, err := json.Marshal(entry.Meta)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode wallet transaction meta")
		}
		row.Meta = datatypes.JSON(raw)
	}

	if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record wallet transaction")
	}
	return row, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, movement Movement) (*models.WalletTransaction, error) {
	return s.move(ctx, tx, enums.WalletTransactionCredit, movement)
}

func (s *service) Debit(ctx context.Context, tx *gorm.DB, movement Movement) (*models.WalletTransaction, error) {
	return s.move(ctx, tx, enums.WalletTransactionDebit, movement)
}

func (s *service) move(ctx context.Context, tx *gorm.DB, kind enums.WalletTransactionType, movement Movement) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet movement requires a transaction")
	}
	amount := money.Round2(movement.Amount)
	if amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet movement amount cannot be negative")
	}

	store := s.users.WithTx(tx)
	user, err := store.LockByID(ctx, movement.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock user wallet")
	}

	balance := user.Wallet
	if kind == enums.WalletTransactionCredit {
		balance = balance.Add(amount)
	} else {
		if balance.LessThan(amount) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient wallet balance").
				WithReason(pkgerrors.ReasonInsufficientBalance)
		}
		balance = balance.Sub(amount)
	}

	if err := store.UpdateWallet(ctx, user.ID, money.Round2(balance)); err != nil {
		if db.IsCheckViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "insufficient wallet balance").
				WithReason(pkgerrors.ReasonInsufficientBalance)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet balance")
	}

	return s.Record(ctx, tx, Entry{
		UserID:         user.ID,
		Type:           kind,
		Amount:         amount,
		Reason:         movement.Reason,
		RelatedOrderID: movement.OrderID,
		Meta:           movement.Meta,
		AffectsBalance: true,
	})
}

// RecordHold documents the buyer-side escrow hold. Payment is captured
// outside the platform, so the entry is audit-only and leaves the balance
// untouched.
func (s *service) RecordHold(ctx context.Context, tx *gorm.DB, buyerID, orderID uuid.UUID, amount decimal.Decimal, meta map[string]any) (*models.WalletTransaction, error) {
	return s.Record(ctx, tx, Entry{
		UserID:         buyerID,
		Type:           enums.WalletTransactionDebit,
		Amount:         amount,
		Reason:         holdReason,
		RelatedOrderID: &orderID,
		Meta:           meta,
		AffectsBalance: false,
	})
}
