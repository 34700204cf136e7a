package coupons

import (
	"time"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/money"
	"github.com/shopspring/decimal"
)

// Evaluation is a coupon's effect on a base amount.
type Evaluation struct {
	Coupon      *models.Coupon
	Discount    decimal.Decimal
	FinalAmount decimal.Decimal
}

// Discount computes the clamped, rounded discount a coupon grants on base.
func Discount(coupon *models.Coupon, base decimal.Decimal) decimal.Decimal {
	var raw decimal.Decimal
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		raw = base.Mul(coupon.DiscountValue).Div(decimal.NewFromInt(100))
	case enums.DiscountTypeFlat:
		raw = coupon.DiscountValue
	}
	return money.Round2(money.Clamp(raw, money.Zero, base))
}

// Check validates a loaded coupon against now. The order of checks decides
// which failure is reported when several apply.
func Check(coupon *models.Coupon, now time.Time) error {
	switch {
	case !coupon.IsActive:
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon is inactive").
			WithReason(pkgerrors.ReasonInactiveCoupon)
	case now.After(coupon.ExpiryDate):
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon has expired").
			WithReason(pkgerrors.ReasonExpiredCoupon)
	case coupon.UsedCount >= coupon.MaxUsage:
		return exhausted()
	}
	return nil
}

// Apply evaluates a coupon already known to be usable.
func Apply(coupon *models.Coupon, base decimal.Decimal) *Evaluation {
	discount := Discount(coupon, base)
	return &Evaluation{
		Coupon:      coupon,
		Discount:    discount,
		FinalAmount: money.Round2(base.Sub(discount)),
	}
}

func exhausted() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit reached").
		WithReason(pkgerrors.ReasonExhaustedCoupon)
}
