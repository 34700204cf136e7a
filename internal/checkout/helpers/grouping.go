package helpers

import (
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UniqueServiceIDs returns each referenced service once, in request order.
func UniqueServiceIDs(items []ItemRequest) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ServiceID]; ok {
			continue
		}
		seen[item.ServiceID] = struct{}{}
		ids = append(ids, item.ServiceID)
	}
	return ids
}

// GrossTotal sums the resolved item prices.
func GrossTotal(prices []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, price := range prices {
		total = total.Add(price)
	}
	return money.Round2(total)
}

// SellerEscrow is the escrow a checkout placed with one seller.
type SellerEscrow struct {
	SellerID   uuid.UUID
	Escrow     decimal.Decimal
	OrderCount int
}

// GroupEscrowBySeller totals escrow per seller, ordered by each seller's
// first order in the batch.
func GroupEscrowBySeller(orders []models.Order) []SellerEscrow {
	index := make(map[uuid.UUID]int, len(orders))
	var out []SellerEscrow
	for _, order := range orders {
		i, ok := index[order.SellerID]
		if !ok {
			i = len(out)
			index[order.SellerID] = i
			out = append(out, SellerEscrow{SellerID: order.SellerID, Escrow: decimal.Zero})
		}
		out[i].Escrow = money.Round2(out[i].Escrow.Add(order.EscrowAmount))
		out[i].OrderCount++
	}
	return out
}

// TotalAmount sums what the buyer pays across orders.
func TotalAmount(orders []models.Order) decimal.Decimal {
	total := decimal.Zero
	for _, order := range orders {
		total = total.Add(order.Amount)
	}
	return money.Round2(total)
}
