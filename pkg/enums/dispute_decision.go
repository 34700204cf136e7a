package enums

import "fmt"

// DisputeDecision is the admin's disposition of the held escrow.
type DisputeDecision string

const (
	DisputeDecisionRefundBuyer   DisputeDecision = "refund_buyer"
	DisputeDecisionReleaseSeller DisputeDecision = "release_seller"
	DisputeDecisionNone          DisputeDecision = "none"
)

var validDisputeDecisions = []DisputeDecision{
	DisputeDecisionRefundBuyer,
	DisputeDecisionReleaseSeller,
	DisputeDecisionNone,
}

// IsValid reports whether the value is a known DisputeDecision.
func (d DisputeDecision) IsValid() bool {
	for _, candidate := range validDisputeDecisions {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisputeDecision converts raw input into a DisputeDecision.
func ParseDisputeDecision(value string) (DisputeDecision, error) {
	for _, candidate := range validDisputeDecisions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute decision %q", value)
}
