package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/gigescrow-backend/api/middleware"
	"github.com/angelmondragon/gigescrow-backend/api/responses"
	"github.com/angelmondragon/gigescrow-backend/api/validators"
	"github.com/angelmondragon/gigescrow-backend/internal/disputes"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
	"github.com/google/uuid"
)

type raiseDisputeRequest struct {
	OrderID  uuid.UUID `json:"order_id" validate:"required"`
	Reason   string    `json:"reason" validate:"required,max=2000"`
	ProofURL string    `json:"proof_url,omitempty" validate:"omitempty,url,max=2048"`
}

// RaiseDispute freezes an order's escrow pending an admin ruling.
func RaiseDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispute service unavailable"))
			return
		}
		var payload raiseDisputeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dispute, err := svc.Raise(r.Context(), middleware.ActorFromContext(r.Context()), disputes.RaiseInput{
			OrderID:  payload.OrderID,
			Reason:   validators.SanitizeString(payload.Reason, 2000),
			ProofURL: strings.TrimSpace(payload.ProofURL),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dispute)
	}
}

func ListDisputes(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispute service unavailable"))
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := disputes.ListParams{Limit: page.Limit, Cursor: page.Cursor}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseDisputeStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}
		list, err := svc.ListMine(r.Context(), middleware.ActorFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type resolveDisputeRequest struct {
	Status        enums.DisputeStatus   `json:"status" validate:"required,enum"`
	AdminDecision enums.DisputeDecision `json:"admin_decision,omitempty" validate:"omitempty,enum"`
	AdminNotes    string                `json:"admin_notes,omitempty" validate:"max=2000"`
}

// AdminResolveDispute records a ruling and moves the escrow it decides.
func AdminResolveDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispute service unavailable"))
			return
		}
		disputeID, err := validators.ParseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload resolveDisputeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Resolve(r.Context(), middleware.ActorFromContext(r.Context()), disputes.ResolveInput{
			DisputeID:  disputeID,
			Status:     payload.Status,
			Decision:   payload.AdminDecision,
			AdminNotes: validators.SanitizeString(payload.AdminNotes, 2000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
