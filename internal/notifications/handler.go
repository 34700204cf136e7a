package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
	"github.com/angelmondragon/gigescrow-backend/pkg/outbox"
	"github.com/angelmondragon/gigescrow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Handler writes notification rows for notification_requested events. The
// outbox event id is stored on the row, so redelivery is a no-op.
type Handler struct {
	repo Repository
	logg *logger.Logger
}

func NewHandler(repo Repository, logg *logger.Logger) (*Handler, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &Handler{repo: repo, logg: logg}, nil
}

func (h *Handler) Handle(ctx context.Context, tx *gorm.DB, delivery outbox.Delivery) error {
	var payload payloads.NotificationRequestedEvent
	if err := delivery.Decode(&payload); err != nil {
		return err
	}
	if payload.UserID == uuid.Nil {
		return outbox.NewNonRetryableError(fmt.Errorf("notification %s missing recipient", delivery.EventID))
	}
	if !payload.Type.IsValid() {
		return outbox.NewNonRetryableError(fmt.Errorf("notification %s has invalid type %q", delivery.EventID, payload.Type))
	}

	var meta datatypes.JSON
	if len(payload.Meta) > 0 {
		raw, err := json.Marshal(payload.Meta)
		if err != nil {
			return outbox.NewNonRetryableError(fmt.Errorf("encode notification meta: %w", err))
		}
		meta = datatypes.JSON(raw)
	}

	eventID := delivery.EventID
	row := &models.Notification{
		ID:        uuid.New(),
		EventID:   &eventID,
		UserID:    payload.UserID,
		Type:      payload.Type,
		Title:     payload.Title,
		Message:   payload.Message,
		Meta:      meta,
		CreatedAt: delivery.Envelope.OccurredAt,
	}
	created, err := h.repo.WithTx(tx).Create(ctx, row)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	if !created && h.logg != nil {
		logCtx := h.logg.WithFields(ctx, map[string]any{
			"event_id": delivery.EventID.String(),
			"user_id":  payload.UserID.String(),
		})
		h.logg.Info(logCtx, "notification already delivered")
	}
	return nil
}
