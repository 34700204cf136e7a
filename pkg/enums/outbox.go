package enums

import "fmt"

// OutboxAggregateType is the kind of row an outbox event is keyed on.
// Notification events are keyed on the recipient.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateNotification OutboxAggregateType = "notification"
)

func (a OutboxAggregateType) IsValid() bool {
	switch a {
	case AggregateOrder, AggregateNotification:
		return true
	}
	return false
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	if a := OutboxAggregateType(value); a.IsValid() {
		return a, nil
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to event_type_enum.
type OutboxEventType string

const (
	EventNotificationRequested OutboxEventType = "notification_requested"
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventOrderCompleted        OutboxEventType = "order_completed"
	EventEscrowReleased        OutboxEventType = "escrow_released"
	EventEscrowRefunded        OutboxEventType = "escrow_refunded"
)

func (e OutboxEventType) IsValid() bool {
	switch e {
	case EventNotificationRequested,
		EventOrderCreated,
		EventOrderStatusChanged,
		EventOrderCompleted,
		EventEscrowReleased,
		EventEscrowRefunded:
		return true
	}
	return false
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	if e := OutboxEventType(value); e.IsValid() {
		return e, nil
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
