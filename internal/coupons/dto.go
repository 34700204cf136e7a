package coupons

import (
	"time"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInput is the admin payload for a new coupon.
type CreateInput struct {
	Code          string
	DiscountType  enums.DiscountType
	DiscountValue decimal.Decimal
	ExpiryDate    time.Time
	MaxUsage      int
	IsActive      *bool
}

func (in CreateInput) toModel() (*models.Coupon, error) {
	code := NormalizeCode(in.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if !in.DiscountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if !in.DiscountValue.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
	}
	if in.DiscountType == enums.DiscountTypePercentage && in.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	if in.ExpiryDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry date is required")
	}
	maxUsage := in.MaxUsage
	if maxUsage == 0 {
		maxUsage = 1
	}
	if maxUsage < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max usage must be positive")
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return &models.Coupon{
		ID:            uuid.New(),
		Code:          code,
		DiscountType:  in.DiscountType,
		DiscountValue: money.Round2(in.DiscountValue),
		ExpiryDate:    in.ExpiryDate.UTC(),
		MaxUsage:      maxUsage,
		IsActive:      active,
	}, nil
}

// CouponDTO is the admin view of a coupon.
type CouponDTO struct {
	ID            uuid.UUID          `json:"id"`
	Code          string             `json:"code"`
	DiscountType  enums.DiscountType `json:"discount_type"`
	DiscountValue decimal.Decimal    `json:"discount_value"`
	ExpiryDate    time.Time          `json:"expiry_date"`
	MaxUsage      int                `json:"max_usage"`
	UsedCount     int                `json:"used_count"`
	IsActive      bool               `json:"is_active"`
}

// PreviewDTO is the apply-coupon response.
type PreviewDTO struct {
	Code        string          `json:"code"`
	Amount      decimal.Decimal `json:"amount"`
	Discount    decimal.Decimal `json:"discount"`
	FinalAmount decimal.Decimal `json:"final_amount"`
}

func FromModel(c *models.Coupon) *CouponDTO {
	if c == nil {
		return nil
	}
	return &CouponDTO{
		ID:            c.ID,
		Code:          c.Code,
		DiscountType:  c.DiscountType,
		DiscountValue: c.DiscountValue,
		ExpiryDate:    c.ExpiryDate,
		MaxUsage:      c.MaxUsage,
		UsedCount:     c.UsedCount,
		IsActive:      c.IsActive,
	}
}
