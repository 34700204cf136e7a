package coupons

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/gigescrow-backend/internal/authz"
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

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func newTestService(t *testing.T) (*service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return fixedNow }
	return impl, conn
}

func seedCoupon(t *testing.T, conn *gorm.DB, mutate func(c *models.Coupon)) *models.Coupon {
	t.Helper()
	coupon := &models.Coupon{
		ID:            uuid.New(),
		Code:          "SAVE20",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: d("20"),
		ExpiryDate:    fixedNow.Add(24 * time.Hour),
		MaxUsage:      5,
		IsActive:      true,
	}
	if mutate != nil {
		mutate(coupon)
	}
	dbtest.Create(t, conn, coupon)
	return coupon
}

func TestDiscount(t *testing.T) {
	cases := []struct {
		name  string
		kind  enums.DiscountType
		value string
		base  string
		want  string
	}{
		{"percentage", enums.DiscountTypePercentage, "20", "150", "30"},
		{"percentage rounds", enums.DiscountTypePercentage, "15", "33.33", "5"},
		{"flat", enums.DiscountTypeFlat, "25", "150", "25"},
		{"flat clamps to base", enums.DiscountTypeFlat, "500", "150", "150"},
		{"percentage over 100 clamps", enums.DiscountTypePercentage, "120", "10", "10"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Discount(&models.Coupon{DiscountType: tc.kind, DiscountValue: d(tc.value)}, d(tc.base))
			assert.True(t, got.Equal(d(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestEvaluate(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	seedCoupon(t, conn, nil)
	seedCoupon(t, conn, func(c *models.Coupon) { c.Code = "OFF"; c.IsActive = false })
	seedCoupon(t, conn, func(c *models.Coupon) { c.Code = "OLD"; c.ExpiryDate = fixedNow.Add(-time.Minute) })
	seedCoupon(t, conn, func(c *models.Coupon) { c.Code = "USED"; c.MaxUsage = 2; c.UsedCount = 2 })

	eval, err := svc.Evaluate(ctx, nil, "  save20 ", d("150"))
	require.NoError(t, err)
	assert.True(t, eval.Discount.Equal(d("30")))
	assert.True(t, eval.FinalAmount.Equal(d("120")))

	failures := []struct {
		code   string
		status pkgerrors.Code
		reason pkgerrors.Reason
	}{
		{"NOPE", pkgerrors.CodeNotFound, pkgerrors.ReasonInvalidCoupon},
		{"", pkgerrors.CodeNotFound, pkgerrors.ReasonInvalidCoupon},
		{"OFF", pkgerrors.CodeValidation, pkgerrors.ReasonInactiveCoupon},
		{"OLD", pkgerrors.CodeValidation, pkgerrors.ReasonExpiredCoupon},
		{"USED", pkgerrors.CodeConflict, pkgerrors.ReasonExhaustedCoupon},
	}
	for _, tc := range failures {
		t.Run(tc.code, func(t *testing.T) {
			_, err := svc.Evaluate(ctx, nil, tc.code, d("100"))
			require.Error(t, err)
			assert.Equal(t, tc.status, pkgerrors.As(err).Code())
			assert.Equal(t, tc.reason, pkgerrors.ReasonOf(err))
		})
	}
}

func TestEvaluateHasNoSideEffects(t *testing.T) {
	svc, conn := newTestService(t)
	coupon := seedCoupon(t, conn, nil)

	_, err := svc.Evaluate(context.Background(), nil, coupon.Code, d("100"))
	require.NoError(t, err)

	var reloaded models.Coupon
	require.NoError(t, conn.First(&reloaded, "id = ?", coupon.ID).Error)
	assert.Zero(t, reloaded.UsedCount)
}

func TestRedeemNeverExceedsMaxUsage(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	coupon := seedCoupon(t, conn, func(c *models.Coupon) { c.MaxUsage = 1 })

	// two checkouts both evaluated the coupon as usable; only one may redeem
	_, err := svc.Evaluate(ctx, nil, coupon.Code, d("10"))
	require.NoError(t, err)
	_, err = svc.Evaluate(ctx, nil, coupon.Code, d("10"))
	require.NoError(t, err)

	first := conn.Transaction(func(tx *gorm.DB) error { return svc.Redeem(ctx, tx, coupon.ID) })
	second := conn.Transaction(func(tx *gorm.DB) error { return svc.Redeem(ctx, tx, coupon.ID) })

	require.NoError(t, first)
	require.Error(t, second)
	assert.Equal(t, pkgerrors.ReasonExhaustedCoupon, pkgerrors.ReasonOf(second))

	var reloaded models.Coupon
	require.NoError(t, conn.First(&reloaded, "id = ?", coupon.ID).Error)
	assert.Equal(t, 1, reloaded.UsedCount)
}

func TestRedeemRollsBackWithCaller(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	coupon := seedCoupon(t, conn, nil)

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Redeem(ctx, tx, coupon.ID); err != nil {
			return err
		}
		return errors.New("milestone mismatch")
	})
	require.Error(t, err)

	var reloaded models.Coupon
	require.NoError(t, conn.First(&reloaded, "id = ?", coupon.ID).Error)
	assert.Zero(t, reloaded.UsedCount)
}

func TestCreateAndList(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	admin := authz.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}

	input := CreateInput{
		Code:          "welcome10",
		DiscountType:  enums.DiscountTypeFlat,
		DiscountValue: d("10"),
		ExpiryDate:    fixedNow.Add(48 * time.Hour),
	}
	created, err := svc.Create(ctx, admin, input)
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", created.Code)
	assert.Equal(t, 1, created.MaxUsage)
	assert.True(t, created.IsActive)

	_, err = svc.Create(ctx, admin, input)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	_, err = svc.Create(ctx, authz.Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}, input)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	list, err := svc.List(ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestPreview(t *testing.T) {
	svc, conn := newTestService(t)
	seedCoupon(t, conn, nil)
	buyer := authz.Actor{UserID: uuid.New(), Role: enums.UserRoleBuyer}

	preview, err := svc.Preview(context.Background(), buyer, "save20", d("150"))
	require.NoError(t, err)
	assert.True(t, preview.Discount.Equal(d("30")))
	assert.True(t, preview.FinalAmount.Equal(d("120")))

	_, err = svc.Preview(context.Background(), buyer, "save20", d("0"))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
