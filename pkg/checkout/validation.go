package checkout

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/money"
)

// MilestonePlanInput pairs an order's escrow amount with the milestone
// amounts the buyer proposed for it.
type MilestonePlanInput struct {
	ServiceID    uuid.UUID
	EscrowAmount decimal.Decimal
	Amounts      []decimal.Decimal
}

// MilestoneMismatchDetail is returned to callers when a plan does not cover
// the escrow exactly.
type MilestoneMismatchDetail struct {
	ServiceID    uuid.UUID       `json:"service_id"`
	EscrowAmount decimal.Decimal `json:"escrow_amount"`
	PlannedTotal decimal.Decimal `json:"planned_total"`
}

// PlannedTotal sums milestone amounts as they will be stored, each rounded
// to cents first.
func PlannedTotal(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(money.Round2(amount))
	}
	return total
}

// ValidateMilestonePlans ensures every supplied plan sums to its order's
// escrow amount. Items without a plan are skipped.
func ValidateMilestonePlans(plans []MilestonePlanInput) error {
	var violations []MilestoneMismatchDetail
	for _, plan := range plans {
		if len(plan.Amounts) == 0 {
			continue
		}
		total := PlannedTotal(plan.Amounts)
		if !money.EqualCents(total, plan.EscrowAmount) {
			violations = append(violations, MilestoneMismatchDetail{
				ServiceID:    plan.ServiceID,
				EscrowAmount: money.Round2(plan.EscrowAmount),
				PlannedTotal: total,
			})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	msg := fmt.Sprintf("milestone total %s must equal escrow amount %s",
		violations[0].PlannedTotal.StringFixed(money.Places), violations[0].EscrowAmount.StringFixed(money.Places))
	if len(violations) > 1 {
		msg = fmt.Sprintf("milestone plans do not match escrow for %d item(s)", len(violations))
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).
		WithDetails(map[string]any{"violations": violations}).
		WithReason(pkgerrors.ReasonMilestoneMismatch)
}
