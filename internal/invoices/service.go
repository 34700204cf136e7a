package invoices

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/gigescrow-backend/internal/authz"
	"github.com/angelmondragon/gigescrow-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceDTO is the transport shape of an issued invoice.
type InvoiceDTO struct {
	OrderID       uuid.UUID       `json:"order_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Commission    decimal.Decimal `json:"commission"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	IssuedAt      time.Time       `json:"issued_at"`
}

// Service reads invoices for the parties of an order.
type Service interface {
	Get(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*InvoiceDTO, error)
}

type service struct {
	repo   Repository
	orders orders.Repository
}

// NewService builds the invoice reader.
func NewService(repo Repository, ordersRepo orders.Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "invoices repository required")
	}
	if ordersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	return &service{repo: repo, orders: ordersRepo}, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*InvoiceDTO, error) {
	if err := authz.Authenticated(actor); err != nil {
		return nil, err
	}
	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !authz.CanAny(actor, order.BuyerID, order.SellerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view this invoice")
	}

	record, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not issued yet")
	}
	return &InvoiceDTO{
		OrderID:       record.OrderID,
		InvoiceNumber: record.InvoiceNumber,
		Subtotal:      record.Subtotal,
		Commission:    record.Commission,
		TotalAmount:   record.TotalAmount,
		IssuedAt:      record.IssuedAt,
	}, nil
}
