package notifications

import (
	"context"

	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/outbox"
	"github.com/angelmondragon/gigescrow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Request is a single user-facing alert.
type Request struct {
	UserID  uuid.UUID
	Type    enums.NotificationType
	Title   string
	Message string
	Meta    map[string]any
}

// Notifier queues notifications in the caller's transaction. Delivery happens
// after commit, so a failing notification never undoes the money movement
// that triggered it.
type Notifier struct {
	outbox outboxPublisher
}

func NewNotifier(publisher outboxPublisher) (*Notifier, error) {
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	return &Notifier{outbox: publisher}, nil
}

func (n *Notifier) Notify(ctx context.Context, tx *gorm.DB, req Request) error {
	if req.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification recipient required")
	}
	if !req.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
	}
	err := n.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   req.UserID,
		Data: payloads.NotificationRequestedEvent{
			UserID:  req.UserID,
			Type:    req.Type,
			Title:   req.Title,
			Message: req.Message,
			Meta:    req.Meta,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue notification")
	}
	return nil
}

// NotifyAll queues the same alert for several recipients, skipping duplicates.
func (n *Notifier) NotifyAll(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID, req Request) error {
	seen := make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		req.UserID = id
		if err := n.Notify(ctx, tx, req); err != nil {
			return err
		}
	}
	return nil
}
