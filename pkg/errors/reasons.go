package errors

// Reason is a stable machine-readable cause attached to domain failures.
type Reason string

const (
	ReasonInvalidCoupon             Reason = "invalid_coupon"
	ReasonInactiveCoupon            Reason = "inactive_coupon"
	ReasonExpiredCoupon             Reason = "expired_coupon"
	ReasonExhaustedCoupon           Reason = "exhausted_coupon"
	ReasonPackageUnavailable        Reason = "package_unavailable"
	ReasonMilestoneMismatch         Reason = "milestone_mismatch"
	ReasonInvalidTransition         Reason = "invalid_transition"
	ReasonMilestonesIncomplete      Reason = "milestones_incomplete"
	ReasonMilestoneCompleted        Reason = "milestone_already_completed"
	ReasonDisputeAlreadyActive      Reason = "dispute_already_active"
	ReasonEscrowSettled             Reason = "escrow_already_settled"
	ReasonEscrowOverdrawn           Reason = "escrow_overdrawn"
	ReasonWithdrawalProcessed       Reason = "withdrawal_already_processed"
	ReasonPendingWithdrawalExists   Reason = "pending_withdrawal_exists"
	ReasonInsufficientBalance       Reason = "insufficient_balance"
	ReasonReviewExists              Reason = "review_already_exists"
	ReasonCompletedPurchaseRequired Reason = "completed_purchase_required"
)

// ReasonOf extracts the reason recorded via WithReason, or "" when absent.
func ReasonOf(err error) Reason {
	typed := As(err)
	if typed == nil {
		return ""
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return ""
	}
	if raw, ok := details["reason"].(string); ok {
		return Reason(raw)
	}
	return ""
}
