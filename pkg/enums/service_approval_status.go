package enums

import "fmt"

// ServiceApprovalStatus gates which catalog services can be purchased.
type ServiceApprovalStatus string

const (
	ServiceApprovalPending  ServiceApprovalStatus = "pending"
	ServiceApprovalApproved ServiceApprovalStatus = "approved"
	ServiceApprovalRejected ServiceApprovalStatus = "rejected"
)

var validServiceApprovalStatuses = []ServiceApprovalStatus{
	ServiceApprovalPending,
	ServiceApprovalApproved,
	ServiceApprovalRejected,
}

// IsValid reports whether the value is a known ServiceApprovalStatus.
func (s ServiceApprovalStatus) IsValid() bool {
	for _, candidate := range validServiceApprovalStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseServiceApprovalStatus converts raw input into a ServiceApprovalStatus.
func ParseServiceApprovalStatus(value string) (ServiceApprovalStatus, error) {
	for _, candidate := range validServiceApprovalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service approval status %q", value)
}
