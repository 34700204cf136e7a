package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
)

// Delivery is one decoded outbox row handed to a Handler.
type Delivery struct {
	OutboxID      uuid.UUID
	EventID       uuid.UUID
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Envelope      PayloadEnvelope
}

// Decode unmarshals the envelope data into dst.
func (d Delivery) Decode(dst any) error {
	if err := json.Unmarshal(d.Envelope.Data, dst); err != nil {
		return NewNonRetryableError(fmt.Errorf("decode %s payload: %w", d.EventType, err))
	}
	return nil
}

// Handler consumes a delivery inside the publisher's transaction. Writes made
// through tx commit together with the published marker.
type Handler interface {
	Handle(ctx context.Context, tx *gorm.DB, delivery Delivery) error
}

type HandlerFunc func(ctx context.Context, tx *gorm.DB, delivery Delivery) error

func (f HandlerFunc) Handle(ctx context.Context, tx *gorm.DB, delivery Delivery) error {
	return f(ctx, tx, delivery)
}

// NonRetryableError marks failures that retrying cannot fix.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

func NewNonRetryableError(err error) error {
	if err == nil {
		return nil
	}
	return NonRetryableError{Err: err}
}

func IsNonRetryable(err error) bool {
	var target NonRetryableError
	return errors.As(err, &target)
}

// HandlerRegistry maps event types to the in-process consumers that react to
// them. Event types without handlers are published as no-ops.
type HandlerRegistry struct {
	mtx      sync.RWMutex
	handlers map[enums.OutboxEventType][]Handler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[enums.OutboxEventType][]Handler)}
}

func (r *HandlerRegistry) Register(eventType enums.OutboxEventType, handler Handler) {
	if handler == nil {
		return
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.handlers[eventType] = append(r.handlers[eventType], handler)
}

func (r *HandlerRegistry) Handlers(eventType enums.OutboxEventType) []Handler {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return append([]Handler(nil), r.handlers[eventType]...)
}

// Resolve decodes the stored row into a Delivery. Malformed rows are
// non-retryable.
func (r *HandlerRegistry) Resolve(event models.OutboxEvent) (*Delivery, error) {
	if !event.EventType.IsValid() {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %q", event.EventType))
	}
	envelope, err := DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	if envelope.Version != currentVersion {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported version %d for %s", envelope.Version, event.EventType))
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("invalid event id %q", envelope.EventID))
	}
	return &Delivery{
		OutboxID:      event.ID,
		EventID:       eventID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Envelope:      envelope,
	}, nil
}
