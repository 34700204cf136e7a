package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
)

const currentVersion = 1

// DomainEvent is what services hand to Emit inside their transaction.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

// row validates the event and wraps its data in a versioned envelope.
func (e DomainEvent) row(now time.Time) (models.OutboxEvent, error) {
	if !e.EventType.IsValid() {
		return models.OutboxEvent{}, fmt.Errorf("unknown outbox event type %q", e.EventType)
	}
	if !e.AggregateType.IsValid() {
		return models.OutboxEvent{}, fmt.Errorf("unknown outbox aggregate type %q", e.AggregateType)
	}
	if e.AggregateID == uuid.Nil {
		return models.OutboxEvent{}, fmt.Errorf("%s event has no aggregate id", e.EventType)
	}
	data, err := json.Marshal(e.Data)
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("encode %s data: %w", e.EventType, err)
	}

	occurred := e.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	version := e.Version
	if version == 0 {
		version = currentVersion
	}
	payload, err := json.Marshal(PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: occurred,
		Actor:      e.Actor,
		Data:       data,
	})
	if err != nil {
		return models.OutboxEvent{}, err
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		Payload:       payload,
		CreatedAt:     occurred,
	}, nil
}

// Service queues domain events in the transactional outbox.
type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit stores one event in the caller's transaction so it commits or rolls
// back together with the state change it describes.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	return s.EmitBatch(ctx, tx, []DomainEvent{event})
}

// EmitBatch stores events with a single insert. Nothing is written if any
// event is invalid.
func (s *Service) EmitBatch(ctx context.Context, tx *gorm.DB, events []DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if len(events) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]models.OutboxEvent, 0, len(events))
	for _, event := range events {
		row, err := event.row(now)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	if err := s.repo.InsertBatch(tx, rows); err != nil {
		return err
	}

	if s.logg != nil {
		for _, row := range rows {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"outbox_id":      row.ID.String(),
				"event_type":     row.EventType,
				"aggregate_type": row.AggregateType,
				"aggregate_id":   row.AggregateID.String(),
			}), "outbox event queued")
		}
	}
	return nil
}
