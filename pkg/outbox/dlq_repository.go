package outbox

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/angelmondragon/gigescrow-backend/pkg/pagination"
)

const maxDLQErrorLen = 1024

var (
	ErrDLQEntryNotFound = errors.New("dlq entry not found")
	ErrNotReplayable    = errors.New("dlq entry is not replayable")
)

// DLQRepository stores events the publisher gave up on and lets an operator
// push retryable ones back onto the outbox.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ErrorMessage != nil {
		msg := truncate(*entry.ErrorMessage, maxDLQErrorLen)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns nil when the event never dead-lettered.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var entry models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByReason returns the newest entries first. An empty reason lists all.
func (r *DLQRepository) ListByReason(ctx context.Context, reason enums.OutboxDLQErrorReason, limit int) ([]models.OutboxDLQ, error) {
	q := r.db.WithContext(ctx).Order("failed_at DESC").Order("id DESC").Limit(pagination.NormalizeLimit(limit))
	if reason != "" {
		q = q.Where("error_reason = ?", reason)
	}
	var rows []models.OutboxDLQ
	return rows, q.Find(&rows).Error
}

// Requeue resets the outbox row behind a replayable entry so the publisher
// picks it up again, and drops the entry. Rows already published are left
// untouched.
func (r *DLQRepository) Requeue(ctx context.Context, eventID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.OutboxDLQ
		if err := tx.Where("event_id = ?", eventID).First(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDLQEntryNotFound
			}
			return err
		}
		if !entry.ErrorReason.Replayable() {
			return fmt.Errorf("%w: %s", ErrNotReplayable, entry.ErrorReason)
		}

		res := tx.Model(&models.OutboxEvent{}).
			Where("id = ? AND published_at IS NULL", eventID).
			Updates(map[string]any{"attempt_count": 0, "last_error": nil})
		if res.Error != nil {
			return fmt.Errorf("reset outbox event %s: %w", eventID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("outbox event %s is missing or already published", eventID)
		}
		return tx.Delete(&entry).Error
	})
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
