package reputation

import (
	"context"
	"testing"

	"github.com/angelmondragon/gigescrow-backend/internal/users"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestScoreAndTierScenario(t *testing.T) {
	in := Inputs{CompletedOrders: 10, AverageRating: d("4.2"), Disputes: 1, Revenue: d("600")}
	assert.True(t, Score(in).Equal(d("70")), "score %s", Score(in))
	assert.Equal(t, enums.SellerLevelLevel1, Tier(in))
}

func TestScoreClampsToRange(t *testing.T) {
	assert.True(t, Score(Inputs{Disputes: 5}).Equal(decimal.Zero))
	assert.True(t, Score(Inputs{CompletedOrders: 200, AverageRating: d("5"), Revenue: d("90000")}).Equal(d("100")))
	assert.True(t, Score(Inputs{CompletedOrders: 1, AverageRating: d("4.333333")}).Equal(d("66.2")))
}

func TestTierRules(t *testing.T) {
	cases := []struct {
		name string
		in   Inputs
		want enums.SellerLevel
	}{
		{"top rated", Inputs{CompletedOrders: 50, AverageRating: d("4.7"), Disputes: 2, Revenue: d("5000")}, enums.SellerLevelTopRated},
		{"too many disputes for top", Inputs{CompletedOrders: 50, AverageRating: d("4.7"), Disputes: 3, Revenue: d("5000")}, enums.SellerLevelLevel2},
		{"level2", Inputs{CompletedOrders: 20, AverageRating: d("4.4"), Disputes: 4, Revenue: d("2000")}, enums.SellerLevelLevel2},
		{"rating below level1", Inputs{CompletedOrders: 30, AverageRating: d("3.9"), Revenue: d("9000")}, enums.SellerLevelNew},
		{"revenue below level1", Inputs{CompletedOrders: 8, AverageRating: d("4"), Revenue: d("499.99")}, enums.SellerLevelNew},
		{"fresh seller", Inputs{}, enums.SellerLevelNew},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Tier(tc.in))
		})
	}
}

func TestRecomputeWritesScoreAndLevel(t *testing.T) {
	conn := dbtest.Open(t)
	usersRepo := users.NewRepository(conn)
	svc, err := NewService(NewRepository(conn), usersRepo)
	require.NoError(t, err)

	seller := dbtest.User(t, conn, enums.UserRoleSeller, "0")
	service := dbtest.Service(t, conn, seller.ID, "60", "")

	var orders []*models.Order
	for i := 0; i < 10; i++ {
		buyer := dbtest.User(t, conn, enums.UserRoleBuyer, "0")
		orders = append(orders, dbtest.Order(t, conn, buyer.ID, seller.ID, service.ID, enums.OrderStatusCompleted, "60", "0", "6"))
	}
	// pending orders contribute nothing.
	dbtest.Order(t, conn, orders[0].BuyerID, seller.ID, service.ID, enums.OrderStatusPending, "900", "810", "90")

	for i, rating := range []int{4, 4, 4, 5, 4} {
		dbtest.Review(t, conn, orders[i].BuyerID, service.ID, rating)
	}
	dbtest.Dispute(t, conn, orders[0].ID, orders[0].BuyerID, enums.DisputeStatusOpen)
	dbtest.Dispute(t, conn, orders[1].ID, orders[1].BuyerID, enums.DisputeStatusRejected)

	var snap *Snapshot
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		snap, err = svc.Recompute(context.Background(), tx, seller.ID)
		return err
	}))

	assert.EqualValues(t, 10, snap.CompletedOrders)
	assert.EqualValues(t, 1, snap.Disputes)
	assert.True(t, snap.Revenue.Equal(d("600")), "revenue %s", snap.Revenue)
	assert.True(t, snap.AverageRating.Equal(d("4.2")), "avg %s", snap.AverageRating)
	assert.True(t, snap.Score.Equal(d("70")), "score %s", snap.Score)
	assert.Equal(t, enums.SellerLevelLevel1, snap.Level)

	stored, err := usersRepo.FindByID(context.Background(), seller.ID)
	require.NoError(t, err)
	assert.True(t, stored.ReputationScore.Equal(d("70")))
	assert.Equal(t, enums.SellerLevelLevel1, stored.SellerLevel)

	read, err := svc.Snapshot(context.Background(), seller.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SellerLevelLevel1, read.Level)
	assert.True(t, read.Score.Equal(d("70")))
}

func TestRecomputeIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), users.NewRepository(conn))
	require.NoError(t, err)
	seller := dbtest.User(t, conn, enums.UserRoleSeller, "0")

	first, err := svc.Recompute(context.Background(), conn, seller.ID)
	require.NoError(t, err)
	second, err := svc.Recompute(context.Background(), conn, seller.ID)
	require.NoError(t, err)
	assert.True(t, first.Score.Equal(second.Score))
	assert.Equal(t, first.Level, second.Level)
	assert.Equal(t, enums.SellerLevelNew, second.Level)
	assert.True(t, second.Score.IsZero())
}

func TestSnapshotRejectsNonSellers(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), users.NewRepository(conn))
	require.NoError(t, err)
	buyer := dbtest.User(t, conn, enums.UserRoleBuyer, "0")

	_, err = svc.Snapshot(context.Background(), buyer.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
	_, err = svc.Snapshot(context.Background(), uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
