package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceRecord is the issued invoice for a completed order.
type InvoiceRecord struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	BuyerID       uuid.UUID       `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID      uuid.UUID       `gorm:"column:seller_id;type:uuid;not null"`
	InvoiceNumber string          `gorm:"column:invoice_number;type:text;not null;uniqueIndex"`
	Subtotal      decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Commission    decimal.Decimal `gorm:"column:commission;type:numeric(12,2);not null"`
	TotalAmount   decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	IssuedAt      time.Time       `gorm:"column:issued_at;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
