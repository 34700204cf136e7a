package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/gigescrow-backend/internal/authz"
	"github.com/angelmondragon/gigescrow-backend/internal/catalog"
	"github.com/angelmondragon/gigescrow-backend/internal/coupons"
	"github.com/angelmondragon/gigescrow-backend/internal/notifications"
	"github.com/angelmondragon/gigescrow-backend/internal/orders"
	"github.com/angelmondragon/gigescrow-backend/internal/users"
	"github.com/angelmondragon/gigescrow-backend/internal/wallet"
	"github.com/angelmondragon/gigescrow-backend/pkg/config"
	dbpkg "github.com/angelmondragon/gigescrow-backend/pkg/db"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/outbox"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type fixture struct {
	conn    *gorm.DB
	svc     Service
	buyer   *models.User
	sellerA *models.User
	sellerB *models.User
}

func newFixture(t *testing.T, ringLimit int) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	usersRepo := users.NewRepository(conn)
	ledger, err := wallet.NewService(wallet.NewRepository(conn), usersRepo)
	require.NoError(t, err)
	couponSvc, err := coupons.NewService(coupons.NewRepository(conn))
	require.NoError(t, err)
	publisher := outbox.NewService(outbox.NewRepository(conn), nil)
	notifier, err := notifications.NewNotifier(publisher)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Tx:       dbpkg.NewFromConn(conn),
		Catalog:  catalog.NewRepository(conn),
		Orders:   orders.NewRepository(conn),
		Users:    usersRepo,
		Coupons:  couponSvc,
		Ledger:   ledger,
		Outbox:   publisher,
		Notifier: notifier,
		Escrow:   config.EscrowConfig{CommissionPercent: d("10"), ViewedCategoryLimit: ringLimit},
	})
	require.NoError(t, err)

	return &fixture{
		conn:    conn,
		svc:     svc,
		buyer:   dbtest.User(t, conn, enums.UserRoleBuyer, "0"),
		sellerA: dbtest.User(t, conn, enums.UserRoleSeller, "0"),
		sellerB: dbtest.User(t, conn, enums.UserRoleSeller, "0"),
	}
}

func (f *fixture) actor() authz.Actor {
	return authz.Actor{UserID: f.buyer.ID, Role: enums.UserRoleBuyer}
}

func (f *fixture) coupon(t *testing.T, code string, maxUsage int) *models.Coupon {
	t.Helper()
	c := &models.Coupon{
		ID:            uuid.New(),
		Code:          code,
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: d("20"),
		ExpiryDate:    time.Now().Add(24 * time.Hour),
		MaxUsage:      maxUsage,
		IsActive:      true,
	}
	dbtest.Create(t, f.conn, c)
	return c
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := f.conn.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func TestExecuteDistributesCouponProportionally(t *testing.T) {
	f := newFixture(t, 20)
	design := dbtest.Service(t, f.conn, f.sellerA.ID, "100", "")
	copywriting := dbtest.Service(t, f.conn, f.sellerB.ID, "50", "")
	coupon := f.coupon(t, "SAVE20", 5)

	res, err := f.svc.Execute(context.Background(), f.actor(), Input{
		Items:      []Item{{ServiceID: design.ID}, {ServiceID: copywriting.ID}},
		CouponCode: "save20",
	})
	require.NoError(t, err)

	assert.True(t, res.GrossTotal.Equal(d("150")))
	assert.True(t, res.CouponDiscount.Equal(d("30")))
	assert.True(t, res.FinalAmount.Equal(d("120")))
	assert.True(t, res.TotalAmount.Equal(d("120")))
	assert.True(t, res.CommissionPercent.Equal(d("10")))
	require.NotNil(t, res.Coupon)
	assert.Equal(t, "SAVE20", res.Coupon.Code)

	require.Len(t, res.Orders, 2)
	want := []struct{ amount, escrow, commission string }{{"80", "72", "8"}, {"40", "36", "4"}}
	for i, order := range res.Orders {
		assert.True(t, order.Amount.Equal(d(want[i].amount)), "amount %s", order.Amount)
		assert.True(t, order.EscrowAmount.Equal(d(want[i].escrow)), "escrow %s", order.EscrowAmount)
		assert.True(t, order.CommissionAmount.Equal(d(want[i].commission)), "commission %s", order.CommissionAmount)
		assert.Equal(t, enums.EscrowStatusHeld, order.EscrowStatus)
		assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
		assert.Equal(t, enums.OrderStatusPending, order.Status)
		require.NotNil(t, order.CouponID)
		assert.Equal(t, coupon.ID, *order.CouponID)
	}

	var stored models.Coupon
	require.NoError(t, f.conn.First(&stored, "id = ?", coupon.ID).Error)
	assert.Equal(t, 1, stored.UsedCount)

	var holds []models.WalletTransaction
	require.NoError(t, f.conn.Where("user_id = ?", f.buyer.ID).Find(&holds).Error)
	require.Len(t, holds, 2)
	for _, hold := range holds {
		assert.Equal(t, enums.WalletTransactionDebit, hold.Type)
		assert.False(t, hold.AffectsBalance)
	}

	var buyer models.User
	require.NoError(t, f.conn.First(&buyer, "id = ?", f.buyer.ID).Error)
	assert.True(t, buyer.Wallet.IsZero())
	assert.Equal(t, []string{"design", "design"}, []string(buyer.ViewedCategories))

	var svc models.Service
	require.NoError(t, f.conn.First(&svc, "id = ?", design.ID).Error)
	assert.Equal(t, 1, svc.Purchases)

	assert.EqualValues(t, 2, f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderCreated))
	assert.EqualValues(t, 3, f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventNotificationRequested))
}

func TestExecuteMilestoneMismatchAbortsEverything(t *testing.T) {
	f := newFixture(t, 20)
	first := dbtest.Service(t, f.conn, f.sellerA.ID, "100", "")
	second := dbtest.Service(t, f.conn, f.sellerB.ID, "50", "")
	coupon := f.coupon(t, "SAVE20", 5)

	_, err := f.svc.Execute(context.Background(), f.actor(), Input{
		Items: []Item{
			{ServiceID: first.ID, Milestones: []Milestone{{Title: "Draft", Amount: d("36")}, {Title: "Final", Amount: d("36")}}},
			{ServiceID: second.ID, Milestones: []Milestone{{Title: "Everything", Amount: d("40")}}},
		},
		CouponCode: "SAVE20",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ReasonMilestoneMismatch, pkgerrors.ReasonOf(err))

	assert.Zero(t, f.count(t, &models.Order{}, ""))
	assert.Zero(t, f.count(t, &models.Milestone{}, ""))
	assert.Zero(t, f.count(t, &models.WalletTransaction{}, ""))
	assert.Zero(t, f.count(t, &models.OutboxEvent{}, ""))

	var stored models.Coupon
	require.NoError(t, f.conn.First(&stored, "id = ?", coupon.ID).Error)
	assert.Equal(t, 0, stored.UsedCount)

	var svc models.Service
	require.NoError(t, f.conn.First(&svc, "id = ?", first.ID).Error)
	assert.Equal(t, 0, svc.Purchases)
}

func TestExecuteRejectsSubCentMilestones(t *testing.T) {
	f := newFixture(t, 20)
	svc := dbtest.Service(t, f.conn, f.sellerA.ID, "100", "")

	_, err := f.svc.Execute(context.Background(), f.actor(), Input{
		Items: []Item{{
			ServiceID:  svc.ID,
			Milestones: []Milestone{{Title: "Draft", Amount: d("45.005")}, {Title: "Final", Amount: d("44.995")}},
		}},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Equal(t, pkgerrors.ReasonMilestoneMismatch, pkgerrors.ReasonOf(err))

	assert.Zero(t, f.count(t, &models.Order{}, ""))
	assert.Zero(t, f.count(t, &models.Milestone{}, ""))
	assert.Zero(t, f.count(t, &models.WalletTransaction{}, ""))
	assert.Zero(t, f.count(t, &models.OutboxEvent{}, ""))
}

func TestExecuteCreatesMilestonePlan(t *testing.T) {
	f := newFixture(t, 20)
	svc := dbtest.Service(t, f.conn, f.sellerA.ID, "100", `{"premium":{"price":200}}`)

	res, err := f.svc.Execute(context.Background(), f.actor(), Input{
		Items: []Item{{
			ServiceID:   svc.ID,
			PackageType: enums.PackageTypePremium,
			Milestones:  []Milestone{{Title: "Research", Amount: d("60")}, {Title: "Delivery", Amount: d("120")}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	order := res.Orders[0]
	assert.True(t, order.Amount.Equal(d("200")))
	assert.True(t, order.EscrowAmount.Equal(d("180")))
	assert.Equal(t, enums.PackageTypePremium, order.PackageType)
	require.Len(t, order.Milestones, 2)
	assert.Equal(t, "Research", order.Milestones[0].Title)
	assert.Equal(t, 1, order.Milestones[1].Position)
	assert.Nil(t, res.Coupon)
	assert.EqualValues(t, 2, f.count(t, &models.Milestone{}, "order_id = ?", order.ID))
}

func TestExecuteLegacyServiceIDs(t *testing.T) {
	f := newFixture(t, 20)
	svc := dbtest.Service(t, f.conn, f.sellerA.ID, "75", "")

	res, err := f.svc.Execute(context.Background(), f.actor(), Input{ServiceIDs: []uuid.UUID{svc.ID}})
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, enums.PackageTypeSingle, res.Orders[0].PackageType)
	assert.True(t, res.Orders[0].EscrowAmount.Equal(d("67.5")))
	assert.True(t, res.Orders[0].CommissionAmount.Equal(d("7.5")))
}

func TestExecuteFailures(t *testing.T) {
	f := newFixture(t, 20)
	approved := dbtest.Service(t, f.conn, f.sellerA.ID, "100", `{"basic":{"price":0}}`)
	pending := dbtest.Service(t, f.conn, f.sellerB.ID, "50", "")
	require.NoError(t, f.conn.Model(&models.Service{}).Where("id = ?", pending.ID).
		Update("approval_status", enums.ServiceApprovalPending).Error)
	spent := f.coupon(t, "SPENT", 1)
	require.NoError(t, f.conn.Model(&models.Coupon{}).Where("id = ?", spent.ID).Update("used_count", 1).Error)

	cases := []struct {
		name   string
		actor  authz.Actor
		input  Input
		code   pkgerrors.Code
		reason pkgerrors.Reason
	}{
		{"seller cannot buy", authz.Actor{UserID: f.sellerA.ID, Role: enums.UserRoleSeller}, Input{ServiceIDs: []uuid.UUID{approved.ID}}, pkgerrors.CodeForbidden, ""},
		{"empty request", f.actor(), Input{}, pkgerrors.CodeValidation, ""},
		{"unapproved service", f.actor(), Input{ServiceIDs: []uuid.UUID{approved.ID, pending.ID}}, pkgerrors.CodeNotFound, ""},
		{"missing service", f.actor(), Input{ServiceIDs: []uuid.UUID{uuid.New()}}, pkgerrors.CodeNotFound, ""},
		{"zero priced package", f.actor(), Input{Items: []Item{{ServiceID: approved.ID, PackageType: enums.PackageTypeBasic}}}, pkgerrors.CodeValidation, pkgerrors.ReasonPackageUnavailable},
		{"absent package", f.actor(), Input{Items: []Item{{ServiceID: approved.ID, PackageType: enums.PackageTypePremium}}}, pkgerrors.CodeValidation, pkgerrors.ReasonPackageUnavailable},
		{"unknown coupon", f.actor(), Input{ServiceIDs: []uuid.UUID{approved.ID}, CouponCode: "NOPE"}, pkgerrors.CodeNotFound, pkgerrors.ReasonInvalidCoupon},
		{"exhausted coupon", f.actor(), Input{ServiceIDs: []uuid.UUID{approved.ID}, CouponCode: "SPENT"}, pkgerrors.CodeConflict, pkgerrors.ReasonExhaustedCoupon},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Execute(context.Background(), tc.actor, tc.input)
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.As(err).Code())
			if tc.reason != "" {
				assert.Equal(t, tc.reason, pkgerrors.ReasonOf(err))
			}
		})
	}
	assert.Zero(t, f.count(t, &models.Order{}, ""))
}

func TestExecuteBoundsViewedCategories(t *testing.T) {
	f := newFixture(t, 2)
	var items []Item
	for _, category := range []string{"Design", " Writing ", "VIDEO"} {
		svc := dbtest.Service(t, f.conn, f.sellerA.ID, "10", "")
		require.NoError(t, f.conn.Model(&models.Service{}).Where("id = ?", svc.ID).Update("category", category).Error)
		items = append(items, Item{ServiceID: svc.ID})
	}

	_, err := f.svc.Execute(context.Background(), f.actor(), Input{Items: items})
	require.NoError(t, err)

	var buyer models.User
	require.NoError(t, f.conn.First(&buyer, "id = ?", f.buyer.ID).Error)
	assert.Equal(t, []string{"writing", "video"}, []string(buyer.ViewedCategories))
}
