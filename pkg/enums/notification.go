package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderCreated       NotificationType = "order_created"
	NotificationTypeCheckoutSuccess    NotificationType = "checkout_success"
	NotificationTypeOrderAccepted      NotificationType = "order_accepted"
	NotificationTypeOrderStatus        NotificationType = "order_status"
	NotificationTypeEscrowReleased     NotificationType = "escrow_released"
	NotificationTypeMilestoneCompleted NotificationType = "milestone_completed"
	NotificationTypeDisputeRaised      NotificationType = "dispute_raised"
	NotificationTypeDisputeUpdate      NotificationType = "dispute_update"
	NotificationTypeWithdrawalUpdate   NotificationType = "withdrawal_update"
	NotificationTypeReviewAdded        NotificationType = "review_added"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderCreated,
	NotificationTypeCheckoutSuccess,
	NotificationTypeOrderAccepted,
	NotificationTypeOrderStatus,
	NotificationTypeEscrowReleased,
	NotificationTypeMilestoneCompleted,
	NotificationTypeDisputeRaised,
	NotificationTypeDisputeUpdate,
	NotificationTypeWithdrawalUpdate,
	NotificationTypeReviewAdded,
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
