package reviews

import (
	"context"
	"testing"

	"github.com/angelmondragon/gigescrow-backend/internal/authz"
	"github.com/angelmondragon/gigescrow-backend/internal/catalog"
	"github.com/angelmondragon/gigescrow-backend/internal/notifications"
	"github.com/angelmondragon/gigescrow-backend/internal/reputation"
	"github.com/angelmondragon/gigescrow-backend/internal/users"
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

type env struct {
	conn    *gorm.DB
	svc     Service
	seller  *models.User
	service *models.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	conn := dbtest.Open(t)
	usersRepo := users.NewRepository(conn)
	notifier, err := notifications.NewNotifier(outbox.NewService(outbox.NewRepository(conn), nil))
	require.NoError(t, err)
	rep, err := reputation.NewService(reputation.NewRepository(conn), usersRepo)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:       NewRepository(conn),
		Catalog:    catalog.NewRepository(conn),
		Tx:         dbpkg.NewFromConn(conn),
		Notifier:   notifier,
		Reputation: rep,
	})
	require.NoError(t, err)

	seller := dbtest.User(t, conn, enums.UserRoleSeller, "0")
	return &env{conn: conn, svc: svc, seller: seller, service: dbtest.Service(t, conn, seller.ID, "100", "")}
}

// buyerWithOrder seeds a buyer holding an order on the service in status.
func (e *env) buyerWithOrder(t *testing.T, status enums.OrderStatus) authz.Actor {
	t.Helper()
	buyer := dbtest.User(t, e.conn, enums.UserRoleBuyer, "0")
	dbtest.Order(t, e.conn, buyer.ID, e.seller.ID, e.service.ID, status, "100", "90", "10")
	return authz.Actor{UserID: buyer.ID, Role: enums.UserRoleBuyer}
}

func TestSubmitReviewRefreshesRatingAndReputation(t *testing.T) {
	e := newEnv(t)
	first := e.buyerWithOrder(t, enums.OrderStatusCompleted)

	res, err := e.svc.Submit(context.Background(), first, SubmitInput{ServiceID: e.service.ID, Rating: 4, Comment: " solid work "})
	require.NoError(t, err)
	require.NotNil(t, res.Review.Comment)
	assert.Equal(t, "solid work", *res.Review.Comment)
	assert.True(t, res.ServiceRating.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, 1, res.RatingCount)

	var seller models.User
	require.NoError(t, e.conn.First(&seller, "id = ?", e.seller.ID).Error)
	assert.True(t, seller.ReputationScore.Equal(decimal.RequireFromString("61.7")), seller.ReputationScore.String())

	second := e.buyerWithOrder(t, enums.OrderStatusCompleted)
	res, err = e.svc.Submit(context.Background(), second, SubmitInput{ServiceID: e.service.ID, Rating: 5})
	require.NoError(t, err)
	assert.Nil(t, res.Review.Comment)
	assert.True(t, res.ServiceRating.Equal(decimal.RequireFromString("4.5")))
	assert.Equal(t, 2, res.RatingCount)

	var stored models.Service
	require.NoError(t, e.conn.First(&stored, "id = ?", e.service.ID).Error)
	assert.True(t, stored.Rating.Equal(decimal.RequireFromString("4.5")))
	assert.Equal(t, 2, stored.RatingCount)

	require.NoError(t, e.conn.First(&seller, "id = ?", e.seller.ID).Error)
	assert.True(t, seller.ReputationScore.Equal(decimal.RequireFromString("70.9")), seller.ReputationScore.String())

	var events []models.OutboxEvent
	require.NoError(t, e.conn.Where("event_type = ?", enums.EventNotificationRequested).Find(&events).Error)
	require.Len(t, events, 2)
	assert.Contains(t, string(events[0].Payload), "review_added")
}

func TestSubmitReviewOncePerService(t *testing.T) {
	e := newEnv(t)
	buyer := e.buyerWithOrder(t, enums.OrderStatusCompleted)

	_, err := e.svc.Submit(context.Background(), buyer, SubmitInput{ServiceID: e.service.ID, Rating: 5})
	require.NoError(t, err)

	_, err = e.svc.Submit(context.Background(), buyer, SubmitInput{ServiceID: e.service.ID, Rating: 1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
	assert.Equal(t, pkgerrors.ReasonReviewExists, pkgerrors.ReasonOf(err))

	var stored models.Service
	require.NoError(t, e.conn.First(&stored, "id = ?", e.service.ID).Error)
	assert.True(t, stored.Rating.Equal(decimal.NewFromInt(5)))
}

func TestSubmitReviewRejections(t *testing.T) {
	e := newEnv(t)
	pending := e.buyerWithOrder(t, enums.OrderStatusAccepted)
	completed := e.buyerWithOrder(t, enums.OrderStatusCompleted)
	sellerActor := authz.Actor{UserID: e.seller.ID, Role: enums.UserRoleSeller}

	cases := []struct {
		name   string
		actor  authz.Actor
		input  SubmitInput
		code   pkgerrors.Code
		reason pkgerrors.Reason
	}{
		{name: "seller", actor: sellerActor, input: SubmitInput{ServiceID: e.service.ID, Rating: 5}, code: pkgerrors.CodeForbidden},
		{name: "rating low", actor: completed, input: SubmitInput{ServiceID: e.service.ID, Rating: 0}, code: pkgerrors.CodeValidation},
		{name: "rating high", actor: completed, input: SubmitInput{ServiceID: e.service.ID, Rating: 6}, code: pkgerrors.CodeValidation},
		{name: "missing service", actor: completed, input: SubmitInput{ServiceID: uuid.New(), Rating: 5}, code: pkgerrors.CodeNotFound},
		{name: "order not completed", actor: pending, input: SubmitInput{ServiceID: e.service.ID, Rating: 5}, code: pkgerrors.CodeForbidden, reason: pkgerrors.ReasonCompletedPurchaseRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.svc.Submit(context.Background(), tc.actor, tc.input)
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.As(err).Code())
			if tc.reason != "" {
				assert.Equal(t, tc.reason, pkgerrors.ReasonOf(err))
			}
		})
	}

	var count int64
	require.NoError(t, e.conn.Model(&models.Review{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListReviewsForService(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 3; i++ {
		buyer := e.buyerWithOrder(t, enums.OrderStatusCompleted)
		_, err := e.svc.Submit(context.Background(), buyer, SubmitInput{ServiceID: e.service.ID, Rating: 3 + i})
		require.NoError(t, err)
	}

	page, err := e.svc.ListForService(context.Background(), e.service.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Reviews, 2)
	require.NotEmpty(t, page.Cursor)

	rest, err := e.svc.ListForService(context.Background(), e.service.ID, pagination.Params{Limit: 2, Cursor: page.Cursor})
	require.NoError(t, err)
	assert.Len(t, rest.Reviews, 1)
	assert.Empty(t, rest.Cursor)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{Repo: NewRepository(nil)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}
