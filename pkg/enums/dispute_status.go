package enums

import "fmt"

// DisputeStatus maps to the dispute_status enum in Postgres.
type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusRejected    DisputeStatus = "rejected"
)

var validDisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusUnderReview,
	DisputeStatusResolved,
	DisputeStatusRejected,
}

// String implements fmt.Stringer.
func (d DisputeStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeStatus.
func (d DisputeStatus) IsValid() bool {
	for _, candidate := range validDisputeStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisputeStatus converts raw input into a DisputeStatus.
func ParseDisputeStatus(value string) (DisputeStatus, error) {
	for _, candidate := range validDisputeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute status %q", value)
}

// IsActive reports whether the dispute still blocks a new one on the same order.
func (d DisputeStatus) IsActive() bool {
	return d == DisputeStatusOpen || d == DisputeStatusUnderReview
}

// IsTerminal reports whether the dispute can no longer be updated.
func (d DisputeStatus) IsTerminal() bool {
	return d == DisputeStatusResolved || d == DisputeStatusRejected
}
