package users

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
)

// SellerProfileDTO is the public trust snapshot of a seller.
type SellerProfileDTO struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	SellerLevel     enums.SellerLevel `json:"seller_level"`
	ReputationScore decimal.Decimal   `json:"reputation_score"`
}

func FromModel(u *models.User) *SellerProfileDTO {
	if u == nil {
		return nil
	}
	return &SellerProfileDTO{
		ID:              u.ID,
		Name:            u.Name,
		SellerLevel:     u.SellerLevel,
		ReputationScore: u.ReputationScore,
	}
}
