package notifications

import (
	"context"
	"time"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists notification rows. Every read and write is scoped to
// the recipient.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) (bool, error)
	List(ctx context.Context, query listQuery) ([]models.Notification, *pagination.Cursor, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
}

type listQuery struct {
	UserID     uuid.UUID
	Limit      int
	After      *pagination.Cursor
	UnreadOnly bool
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func (r *gormRepository) owned(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
}

// Create skips rows whose event id was already delivered and reports whether
// it wrote one.
func (r *gormRepository) Create(ctx context.Context, notification *models.Notification) (bool, error) {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(notification)
	return res.RowsAffected > 0, res.Error
}

func (r *gormRepository) List(ctx context.Context, query listQuery) ([]models.Notification, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(query.Limit)
	q := r.owned(ctx, query.UserID)
	if query.UnreadOnly {
		q = q.Where("read_at IS NULL")
	}
	if query.After != nil {
		q = q.Where("(created_at, id) < (?, ?)", query.After.CreatedAt, query.After.ID)
	}

	var rows []models.Notification
	err := q.Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (r *gormRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.owned(ctx, userID).Where("read_at IS NULL").Count(&count).Error
	return count, err
}

// MarkRead keeps the first read time and reports whether the recipient owns
// the row.
func (r *gormRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, at time.Time) (bool, error) {
	res := r.owned(ctx, userID).
		Where("id = ?", notificationID).
		UpdateColumn("read_at", gorm.Expr("COALESCE(read_at, ?)", at))
	return res.RowsAffected > 0, res.Error
}

func (r *gormRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res := r.owned(ctx, userID).Where("read_at IS NULL").UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}
