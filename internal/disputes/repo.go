package disputes

import (
	"context"
	"errors"

	dbpkg "github.com/angelmondragon/gigescrow-backend/pkg/db"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/angelmondragon/gigescrow-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists disputes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dispute *models.Dispute) error
	FindActiveByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	List(ctx context.Context, params listParams) ([]models.Dispute, *pagination.Cursor, error)
}

type listParams struct {
	// VisibleTo limits results to disputes the user raised or that target
	// one of their orders as seller. Nil lists everything.
	VisibleTo *uuid.UUID
	Status    *enums.DisputeStatus
	Limit     int
	Cursor    *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, dispute *models.Dispute) error {
	if dispute.ID == uuid.Nil {
		dispute.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(dispute).Error
}

// FindActiveByOrder returns the open or under-review dispute on orderID, or
// nil when there is none.
func (r *repository) FindActiveByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status IN ?", orderID, []enums.DisputeStatus{enums.DisputeStatusOpen, enums.DisputeStatusUnderReview}).
		First(&dispute).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&dispute).Error; err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := dbpkg.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&dispute).Error; err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Dispute{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) List(ctx context.Context, params listParams) ([]models.Dispute, *pagination.Cursor, error) {
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Dispute{})
	if params.VisibleTo != nil {
		query = query.Where(
			"(raised_by_id = ? OR order_id IN (?))",
			*params.VisibleTo,
			r.db.Model(&models.Order{}).Select("id").Where("seller_id = ?", *params.VisibleTo),
		)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Dispute
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(normalized)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, normalized, func(row models.Dispute) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return page, next, nil
}
