package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/gigescrow-backend/internal/authz"
	"github.com/angelmondragon/gigescrow-backend/internal/users"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRepository struct {
	createFn func(ctx context.Context, entry *models.WalletTransaction) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, entry *models.WalletTransaction) error {
	if f.createFn != nil {
		return f.createFn(ctx, entry)
	}
	return nil
}

func (f *fakeRepository) ListByUser(ctx context.Context, params listParams) ([]models.WalletTransaction, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.WalletTransaction, error) {
	return nil, nil
}

func (f *fakeRepository) Totals(ctx context.Context, userID uuid.UUID) (Totals, error) {
	return Totals{}, nil
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func newSQLiteService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), users.NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func TestService_RecordValidation(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo, users.NewRepository(nil))
	require.NoError(t, err)

	base := Entry{
		UserID:         uuid.New(),
		Type:           enums.WalletTransactionCredit,
		Amount:         d("10"),
		Reason:         "Escrow release",
		AffectsBalance: true,
	}

	cases := map[string]func(e *Entry){
		"missing user":    func(e *Entry) { e.UserID = uuid.Nil },
		"invalid type":    func(e *Entry) { e.Type = "refund" },
		"negative amount": func(e *Entry) { e.Amount = d("-0.01") },
		"blank reason":    func(e *Entry) { e.Reason = "  " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			entry := base
			mutate(&entry)
			_, err := svc.Record(context.Background(), nil, entry)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		})
	}
}

func TestService_RecordPersistsMeta(t *testing.T) {
	var created *models.WalletTransaction
	repo := &fakeRepository{createFn: func(ctx context.Context, entry *models.WalletTransaction) error {
		created = entry
		return nil
	}}
	svc, err := NewService(repo, users.NewRepository(nil))
	require.NoError(t, err)

	orderID := uuid.New()
	got, err := svc.Record(context.Background(), nil, Entry{
		UserID:         uuid.New(),
		Type:           enums.WalletTransactionCredit,
		Amount:         d("36.004"),
		Reason:         "Milestone release",
		RelatedOrderID: &orderID,
		Meta:           map[string]any{"milestoneId": "m1"},
		AffectsBalance: true,
	})
	require.NoError(t, err)
	require.Same(t, created, got)
	assert.True(t, got.Amount.Equal(d("36")))
	assert.JSONEq(t, `{"milestoneId":"m1"}`, string(got.Meta))
}

func TestService_RecordWrapsRepositoryErrors(t *testing.T) {
	repo := &fakeRepository{createFn: func(ctx context.Context, entry *models.WalletTransaction) error {
		return errors.New("connection reset")
	}}
	svc, err := NewService(repo, users.NewRepository(nil))
	require.NoError(t, err)

	_, err = svc.Record(context.Background(), nil, Entry{
		UserID: uuid.New(), Type: enums.WalletTransactionDebit, Amount: d("1"), Reason: "x",
	})
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestService_CreditDebitKeepLedgerBalanced(t *testing.T) {
	svc, conn := newSQLiteService(t)
	ctx := context.Background()
	seller := dbtest.User(t, conn, enums.UserRoleSeller, "0")
	orderID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.Credit(ctx, tx, Movement{UserID: seller.ID, Amount: d("72"), Reason: "Escrow released", OrderID: &orderID}); err != nil {
			return err
		}
		if _, err := svc.Credit(ctx, tx, Movement{UserID: seller.ID, Amount: d("36"), Reason: "Escrow released"}); err != nil {
			return err
		}
		_, err := svc.Debit(ctx, tx, Movement{UserID: seller.ID, Amount: d("50.50"), Reason: "Withdrawal approved"})
		return err
	})
	require.NoError(t, err)

	rec, err := svc.Reconcile(ctx, seller.ID)
	require.NoError(t, err)
	assert.True(t, rec.Balance.Equal(d("57.50")), rec.Balance.String())
	assert.True(t, rec.Balanced, "ledger %s vs balance %s", rec.LedgerSum, rec.Balance)
}

func TestService_DebitInsufficientBalanceRollsBack(t *testing.T) {
	svc, conn := newSQLiteService(t)
	ctx := context.Background()
	seller := dbtest.User(t, conn, enums.UserRoleSeller, "0")

	err := conn.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.Credit(ctx, tx, Movement{UserID: seller.ID, Amount: d("10"), Reason: "Escrow released"}); err != nil {
			return err
		}
		_, err := svc.Debit(ctx, tx, Movement{UserID: seller.ID, Amount: d("10.01"), Reason: "Withdrawal approved"})
		return err
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ReasonInsufficientBalance, pkgerrors.ReasonOf(err))

	var count int64
	require.NoError(t, conn.Model(&models.WalletTransaction{}).Where("user_id = ?", seller.ID).Count(&count).Error)
	assert.Zero(t, count)

	rec, err := svc.Reconcile(ctx, seller.ID)
	require.NoError(t, err)
	assert.True(t, rec.Balance.IsZero())
	assert.True(t, rec.Balanced)
}

func TestService_RecordHoldIsAuditOnly(t *testing.T) {
	svc, conn := newSQLiteService(t)
	ctx := context.Background()
	buyer := dbtest.User(t, conn, enums.UserRoleBuyer, "5")
	orderID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.RecordHold(ctx, tx, buyer.ID, orderID, d("80"), map[string]any{"escrowAmount": "72"})
		return err
	})
	require.NoError(t, err)

	rows, err := NewRepository(conn).ListByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.WalletTransactionDebit, rows[0].Type)
	assert.False(t, rows[0].AffectsBalance)

	// the seeded balance has no ledger rows, so only the hold is checked here
	totals, err := NewRepository(conn).Totals(ctx, buyer.ID)
	require.NoError(t, err)
	assert.True(t, totals.Debits.IsZero())
}

func TestService_BalanceAndHistoryRequireOwner(t *testing.T) {
	svc, conn := newSQLiteService(t)
	ctx := context.Background()
	seller := dbtest.User(t, conn, enums.UserRoleSeller, "12.50")

	owner := authz.Actor{UserID: seller.ID, Role: enums.UserRoleSeller}
	view, err := svc.Balance(ctx, owner, seller.ID)
	require.NoError(t, err)
	assert.True(t, view.Balance.Equal(d("12.5")))

	_, err = svc.Balance(ctx, authz.Actor{UserID: uuid.New(), Role: enums.UserRoleBuyer}, seller.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	admin := authz.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	_, err = svc.History(ctx, admin, seller.ID, pagination.Params{})
	require.NoError(t, err)
}

func TestService_HistoryPaginates(t *testing.T) {
	svc, conn := newSQLiteService(t)
	ctx := context.Background()
	seller := dbtest.User(t, conn, enums.UserRoleSeller, "0")

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		dbtest.Create(t, conn, &models.WalletTransaction{
			ID:             uuid.New(),
			UserID:         seller.ID,
			Type:           enums.WalletTransactionCredit,
			Amount:         decimal.NewFromInt(int64(i + 1)),
			Reason:         "Escrow released",
			AffectsBalance: true,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
	}

	actor := authz.Actor{UserID: seller.ID, Role: enums.UserRoleSeller}
	first, err := svc.History(ctx, actor, seller.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.Cursor)
	assert.True(t, first.Items[0].Amount.Equal(d("3")))

	second, err := svc.History(ctx, actor, seller.ID, pagination.Params{Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.True(t, second.Items[0].Amount.Equal(d("1")))
	assert.Empty(t, second.Cursor)

	_, err = svc.History(ctx, actor, seller.ID, pagination.Params{Cursor: "%%%"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
