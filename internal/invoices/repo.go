package invoices

import (
	"context"
	"errors"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists issued invoices.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.InvoiceRecord) (bool, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.InvoiceRecord, error)
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

// Create writes the invoice unless the order already has one and reports
// whether a row was inserted.
func (r *repository) Create(ctx context.Context, record *models.InvoiceRecord) (bool, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindByOrder returns nil when no invoice has been issued yet.
func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.InvoiceRecord, error) {
	var record models.InvoiceRecord
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
