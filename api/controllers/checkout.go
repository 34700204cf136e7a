package controllers

import (
	"net/http"

	"github.com/angelmondragon/gigescrow-backend/api/middleware"
	"github.com/angelmondragon/gigescrow-backend/api/responses"
	"github.com/angelmondragon/gigescrow-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/gigescrow-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
	"github.com/google/uuid"
)

type checkoutRequest struct {
	Items      []checkoutsvc.Item `json:"items" validate:"omitempty,dive"`
	ServiceIDs []uuid.UUID        `json:"service_ids,omitempty"`
	CouponCode string             `json:"coupon_code,omitempty" validate:"max=64"`
}

// Checkout converts the buyer's selection into paid orders with escrow held.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(payload.Items) == 0 && len(payload.ServiceIDs) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "items are required"))
			return
		}

		result, err := svc.Execute(r.Context(), middleware.ActorFromContext(r.Context()), checkoutsvc.Input{
			Items:      payload.Items,
			ServiceIDs: payload.ServiceIDs,
			CouponCode: payload.CouponCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
