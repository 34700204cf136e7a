package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/gigescrow-backend/internal/authz"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BalanceView is the read-only wallet snapshot.
type BalanceView struct {
	UserID  uuid.UUID       `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}

// TransactionDTO is the transport shape of a ledger row.
type TransactionDTO struct {
	ID             uuid.UUID       `json:"id"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason"`
	RelatedOrderID *uuid.UUID      `json:"related_order_id,omitempty"`
	AffectsBalance bool            `json:"affects_balance"`
	Meta           datatypes.JSON  `json:"meta,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// HistoryPage wraps ledger rows and the cursor for the next page.
type HistoryPage struct {
	Items  []TransactionDTO `json:"items"`
	Cursor string           `json:"cursor"`
}

// Reconciliation compares the stored balance to the ledger.
type Reconciliation struct {
	UserID    uuid.UUID       `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	LedgerSum decimal.Decimal `json:"ledger_sum"`
	Balanced  bool            `json:"balanced"`
}

func toDTO(row models.WalletTransaction) TransactionDTO {
	return TransactionDTO{
		ID:             row.ID,
		Type:           string(row.Type),
		Amount:         row.Amount,
		Reason:         row.Reason,
		RelatedOrderID: row.RelatedOrderID,
		AffectsBalance: row.AffectsBalance,
		Meta:           row.Meta,
		CreatedAt:      row.CreatedAt,
	}
}

func (s *service) Balance(ctx context.Context, actor authz.Actor, userID uuid.UUID) (*BalanceView, error) {
	if err := authz.Require(actor, userID, "cannot view another user's wallet"); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, mapUserErr(err)
	}
	return &BalanceView{UserID: user.ID, Balance: user.Wallet}, nil
}

func (s *service) History(ctx context.Context, actor authz.Actor, userID uuid.UUID, params pagination.Params) (*HistoryPage, error) {
	if err := authz.Require(actor, userID, "cannot view another user's wallet"); err != nil {
		return nil, err
	}

	query := listParams{UserID: userID, Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListByUser(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}

	page := &HistoryPage{Items: make([]TransactionDTO, 0, len(rows))}
	for _, row := range rows {
		page.Items = append(page.Items, toDTO(row))
	}
	if next != nil {
		page.Cursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

// Reconcile checks wallet == credits - debits over balance-affecting entries.
func (s *service) Reconcile(ctx context.Context, userID uuid.UUID) (*Reconciliation, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, mapUserErr(err)
	}
	totals, err := s.repo.Totals(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum wallet transactions")
	}

	sum := totals.Credits.Sub(totals.Debits)
	return &Reconciliation{
		UserID:    userID,
		Balance:   user.Wallet,
		LedgerSum: sum,
		Balanced:  user.Wallet.Equal(sum),
	}, nil
}

func mapUserErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
}
