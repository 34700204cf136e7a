package withdrawals

import (
	"context"
	"testing"

	"github.com/angelmondragon/gigescrow-backend/internal/authz"
	"github.com/angelmondragon/gigescrow-backend/internal/notifications"
	"github.com/angelmondragon/gigescrow-backend/internal/users"
	"github.com/angelmondragon/gigescrow-backend/internal/wallet"
	dbpkg "github.com/angelmondragon/gigescrow-backend/pkg/db"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/outbox"
	"github.com/angelmondragon/gigescrow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type env struct {
	conn   *gorm.DB
	svc    Service
	seller *models.User
	admin  authz.Actor
}

func newEnv(t *testing.T, balance string) *env {
	t.Helper()
	conn := dbtest.Open(t)
	usersRepo := users.NewRepository(conn)
	ledger, err := wallet.NewService(wallet.NewRepository(conn), usersRepo)
	require.NoError(t, err)
	notifier, err := notifications.NewNotifier(outbox.NewService(outbox.NewRepository(conn), nil))
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Users:    usersRepo,
		Ledger:   ledger,
		Tx:       dbpkg.NewFromConn(conn),
		Notifier: notifier,
	})
	require.NoError(t, err)

	return &env{
		conn:   conn,
		svc:    svc,
		seller: dbtest.User(t, conn, enums.UserRoleSeller, balance),
		admin:  authz.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin},
	}
}

func (e *env) sellerActor() authz.Actor {
	return authz.Actor{UserID: e.seller.ID, Role: enums.UserRoleSeller}
}

func (e *env) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	var user models.User
	require.NoError(t, e.conn.First(&user, "id = ?", e.seller.ID).Error)
	return user.Wallet
}

func TestRequestWithdrawal(t *testing.T) {
	e := newEnv(t, "100")

	req, err := e.svc.Request(context.Background(), e.sellerActor(), d("40.004"))
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusPending, req.Status)
	assert.True(t, req.Amount.Equal(d("40")))
	assert.False(t, req.RequestedAt.IsZero())
	assert.True(t, e.balance(t).Equal(d("100")), "requesting does not move money")

	_, err = e.svc.Request(context.Background(), e.sellerActor(), d("10"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
	assert.Equal(t, pkgerrors.ReasonPendingWithdrawalExists, pkgerrors.ReasonOf(err))
}

func TestRequestWithdrawalRejections(t *testing.T) {
	e := newEnv(t, "50")
	buyer := dbtest.User(t, e.conn, enums.UserRoleBuyer, "500")

	cases := []struct {
		name   string
		actor  authz.Actor
		amount string
		code   pkgerrors.Code
		reason pkgerrors.Reason
	}{
		{name: "buyer", actor: authz.Actor{UserID: buyer.ID, Role: enums.UserRoleBuyer}, amount: "10", code: pkgerrors.CodeForbidden},
		{name: "anonymous", actor: authz.Actor{}, amount: "10", code: pkgerrors.CodeUnauthorized},
		{name: "zero", actor: e.sellerActor(), amount: "0", code: pkgerrors.CodeValidation},
		{name: "negative", actor: e.sellerActor(), amount: "-5", code: pkgerrors.CodeValidation},
		{name: "over balance", actor: e.sellerActor(), amount: "50.01", code: pkgerrors.CodeConflict, reason: pkgerrors.ReasonInsufficientBalance},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.svc.Request(context.Background(), tc.actor, d(tc.amount))
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.As(err).Code())
			if tc.reason != "" {
				assert.Equal(t, tc.reason, pkgerrors.ReasonOf(err))
			}
		})
	}

	var count int64
	require.NoError(t, e.conn.Model(&models.WithdrawalRequest{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestApproveWithdrawalDebitsWallet(t *testing.T) {
	e := newEnv(t, "100")
	req, err := e.svc.Request(context.Background(), e.sellerActor(), d("60"))
	require.NoError(t, err)

	processed, err := e.svc.Process(context.Background(), e.admin, ProcessInput{
		RequestID: req.ID,
		Status:    enums.WithdrawalStatusApproved,
		Note:      " paid out ",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusApproved, processed.Status)
	require.NotNil(t, processed.ProcessedAt)
	require.NotNil(t, processed.Note)
	assert.Equal(t, "paid out", *processed.Note)
	assert.True(t, e.balance(t).Equal(d("40")))

	var txs []models.WalletTransaction
	require.NoError(t, e.conn.Where("user_id = ?", e.seller.ID).Find(&txs).Error)
	require.Len(t, txs, 1)
	assert.Equal(t, enums.WalletTransactionDebit, txs[0].Type)
	assert.Equal(t, "Withdrawal approved", txs[0].Reason)
	assert.Contains(t, string(txs[0].Meta), req.ID.String())

	var events []models.OutboxEvent
	require.NoError(t, e.conn.Where("event_type = ?", enums.EventNotificationRequested).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Contains(t, string(events[0].Payload), "withdrawal_update")

	_, err = e.svc.Process(context.Background(), e.admin, ProcessInput{RequestID: req.ID, Status: enums.WithdrawalStatusRejected})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ReasonWithdrawalProcessed, pkgerrors.ReasonOf(err))

	again, err := e.svc.Request(context.Background(), e.sellerActor(), d("40"))
	require.NoError(t, err, "a processed request frees the pending slot")
	assert.Equal(t, enums.WithdrawalStatusPending, again.Status)
}

func TestRejectWithdrawalKeepsBalance(t *testing.T) {
	e := newEnv(t, "100")
	req, err := e.svc.Request(context.Background(), e.sellerActor(), d("60"))
	require.NoError(t, err)

	processed, err := e.svc.Process(context.Background(), e.admin, ProcessInput{RequestID: req.ID, Status: enums.WithdrawalStatusRejected})
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusRejected, processed.Status)
	assert.Nil(t, processed.Note)
	assert.True(t, e.balance(t).Equal(d("100")))

	var count int64
	require.NoError(t, e.conn.Model(&models.WalletTransaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestApproveWithdrawalAfterBalanceDropped(t *testing.T) {
	e := newEnv(t, "100")
	req, err := e.svc.Request(context.Background(), e.sellerActor(), d("80"))
	require.NoError(t, err)
	require.NoError(t, e.conn.Model(&models.User{}).Where("id = ?", e.seller.ID).Update("wallet", d("50")).Error)

	_, err = e.svc.Process(context.Background(), e.admin, ProcessInput{RequestID: req.ID, Status: enums.WithdrawalStatusApproved})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ReasonInsufficientBalance, pkgerrors.ReasonOf(err))

	var row models.WithdrawalRequest
	require.NoError(t, e.conn.First(&row, "id = ?", req.ID).Error)
	assert.Equal(t, enums.WithdrawalStatusPending, row.Status)
	assert.True(t, e.balance(t).Equal(d("50")))
}

func TestProcessWithdrawalValidation(t *testing.T) {
	e := newEnv(t, "100")
	req, err := e.svc.Request(context.Background(), e.sellerActor(), d("10"))
	require.NoError(t, err)

	_, err = e.svc.Process(context.Background(), e.sellerActor(), ProcessInput{RequestID: req.ID, Status: enums.WithdrawalStatusApproved})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	_, err = e.svc.Process(context.Background(), e.admin, ProcessInput{RequestID: req.ID, Status: enums.WithdrawalStatusPending})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	long := make([]byte, maxNoteLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = e.svc.Process(context.Background(), e.admin, ProcessInput{RequestID: req.ID, Status: enums.WithdrawalStatusRejected, Note: string(long)})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = e.svc.Process(context.Background(), e.admin, ProcessInput{RequestID: uuid.New(), Status: enums.WithdrawalStatusRejected})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListWithdrawals(t *testing.T) {
	e := newEnv(t, "100")
	other := dbtest.User(t, e.conn, enums.UserRoleSeller, "100")
	otherActor := authz.Actor{UserID: other.ID, Role: enums.UserRoleSeller}

	first, err := e.svc.Request(context.Background(), e.sellerActor(), d("10"))
	require.NoError(t, err)
	_, err = e.svc.Process(context.Background(), e.admin, ProcessInput{RequestID: first.ID, Status: enums.WithdrawalStatusRejected})
	require.NoError(t, err)
	_, err = e.svc.Request(context.Background(), e.sellerActor(), d("20"))
	require.NoError(t, err)
	_, err = e.svc.Request(context.Background(), otherActor, d("30"))
	require.NoError(t, err)

	mine, err := e.svc.ListMine(context.Background(), e.sellerActor(), pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, mine.Requests, 1)
	require.NotEmpty(t, mine.Cursor)

	rest, err := e.svc.ListMine(context.Background(), e.sellerActor(), pagination.Params{Limit: 1, Cursor: mine.Cursor})
	require.NoError(t, err)
	require.Len(t, rest.Requests, 1)
	assert.NotEqual(t, mine.Requests[0].ID, rest.Requests[0].ID)
	assert.Empty(t, rest.Cursor)

	pending, err := e.svc.ListPending(context.Background(), e.admin, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, pending.Requests, 2)

	_, err = e.svc.ListPending(context.Background(), e.sellerActor(), pagination.Params{})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	_, err = e.svc.ListMine(context.Background(), e.sellerActor(), pagination.Params{Cursor: "%%%"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}
