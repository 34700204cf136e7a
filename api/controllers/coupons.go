package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/gigescrow-backend/api/middleware"
	"github.com/angelmondragon/gigescrow-backend/api/responses"
	"github.com/angelmondragon/gigescrow-backend/api/validators"
	"github.com/angelmondragon/gigescrow-backend/internal/coupons"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

type applyCouponRequest struct {
	Code   string          `json:"code" validate:"required,max=64"`
	Amount decimal.Decimal `json:"amount"`
}

// ApplyCoupon previews a coupon against an amount without redeeming it.
func ApplyCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		preview, err := svc.Preview(r.Context(), middleware.ActorFromContext(r.Context()), payload.Code, payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}

type createCouponRequest struct {
	Code          string             `json:"code" validate:"required,max=64"`
	DiscountType  enums.DiscountType `json:"discount_type" validate:"required,enum"`
	DiscountValue decimal.Decimal    `json:"discount_value" validate:"money"`
	ExpiryDate    time.Time          `json:"expiry_date" validate:"required"`
	MaxUsage      int                `json:"max_usage" validate:"min=0"`
	IsActive      *bool              `json:"is_active,omitempty"`
}

func AdminCreateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		var payload createCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), coupons.CreateInput{
			Code:          payload.Code,
			DiscountType:  payload.DiscountType,
			DiscountValue: payload.DiscountValue,
			ExpiryDate:    payload.ExpiryDate,
			MaxUsage:      payload.MaxUsage,
			IsActive:      payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func AdminListCoupons(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		list, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"coupons": list})
	}
}
