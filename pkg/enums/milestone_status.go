package enums

import "fmt"

type MilestoneStatus string

const (
	MilestoneStatusPending   MilestoneStatus = "pending"
	MilestoneStatusCompleted MilestoneStatus = "completed"
)

var validMilestoneStatuses = []MilestoneStatus{
	MilestoneStatusPending,
	MilestoneStatusCompleted,
}

// IsValid reports whether the value is a known MilestoneStatus.
func (m MilestoneStatus) IsValid() bool {
	for _, candidate := range validMilestoneStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMilestoneStatus converts raw input into a MilestoneStatus.
func ParseMilestoneStatus(value string) (MilestoneStatus, error) {
	for _, candidate := range validMilestoneStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid milestone status %q", value)
}
