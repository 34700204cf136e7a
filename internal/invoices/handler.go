package invoices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
	"github.com/angelmondragon/gigescrow-backend/pkg/money"
	"github.com/angelmondragon/gigescrow-backend/pkg/outbox"
	"github.com/angelmondragon/gigescrow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Number formats an invoice number as INV-YYYYMMDD-<first 8 hex of the order id>.
func Number(orderID uuid.UUID, issuedAt time.Time) string {
	short := strings.ToUpper(strings.ReplaceAll(orderID.String(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", issuedAt.UTC().Format("20060102"), short)
}

// Handler issues one invoice per order_completed event.
type Handler struct {
	repo Repository
	logg *logger.Logger
}

func NewHandler(repo Repository, logg *logger.Logger) (*Handler, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoices repository required")
	}
	return &Handler{repo: repo, logg: logg}, nil
}

func (h *Handler) Handle(ctx context.Context, tx *gorm.DB, delivery outbox.Delivery) error {
	var payload payloads.OrderCompletedEvent
	if err := delivery.Decode(&payload); err != nil {
		return err
	}
	if payload.OrderID == uuid.Nil {
		return outbox.NewNonRetryableError(fmt.Errorf("order_completed %s missing order id", delivery.EventID))
	}

	issuedAt := payload.CompletedAt
	if issuedAt.IsZero() {
		issuedAt = delivery.Envelope.OccurredAt
	}
	amount := money.Round2(payload.Amount)
	record := &models.InvoiceRecord{
		ID:            uuid.New(),
		OrderID:       payload.OrderID,
		BuyerID:       payload.BuyerID,
		SellerID:      payload.SellerID,
		InvoiceNumber: Number(payload.OrderID, issuedAt),
		Subtotal:      amount,
		Commission:    money.Round2(payload.CommissionAmount),
		TotalAmount:   amount,
		IssuedAt:      issuedAt.UTC(),
	}
	created, err := h.repo.WithTx(tx).Create(ctx, record)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}

	if h.logg != nil {
		logCtx := h.logg.WithOrderID(ctx, payload.OrderID.String())
		logCtx = h.logg.WithField(logCtx, "invoice_number", record.InvoiceNumber)
		if created {
			h.logg.Info(logCtx, "invoice issued")
		} else {
			h.logg.Info(logCtx, "invoice already issued")
		}
	}
	return nil
}
