package helpers

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	minMilestoneTitle = 3
	maxMilestoneTitle = 180
)

// MilestoneRequest is one buyer-proposed milestone.
type MilestoneRequest struct {
	Title  string          `json:"title"`
	Amount decimal.Decimal `json:"amount"`
}

// ItemRequest is one service in a checkout request.
type ItemRequest struct {
	ServiceID   uuid.UUID          `json:"service_id"`
	PackageType enums.PackageType  `json:"package_type"`
	Milestones  []MilestoneRequest `json:"milestones,omitempty"`
}

// NormalizeItems validates the request shape before any transaction opens.
// Explicit items win over the legacy serviceIds list, which always buys the
// single package without milestones.
func NormalizeItems(items []ItemRequest, legacyServiceIDs []uuid.UUID) ([]ItemRequest, error) {
	if len(items) == 0 {
		for _, id := range legacyServiceIDs {
			items = append(items, ItemRequest{ServiceID: id, PackageType: enums.PackageTypeSingle})
		}
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one service is required for checkout")
	}

	out := make([]ItemRequest, 0, len(items))
	for i, item := range items {
		if item.ServiceID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: service id required", i))
		}
		if item.PackageType == "" {
			item.PackageType = enums.PackageTypeSingle
		}
		if !item.PackageType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: invalid package type %q", i, item.PackageType))
		}

		milestones := make([]MilestoneRequest, 0, len(item.Milestones))
		for j, m := range item.Milestones {
			title := strings.TrimSpace(m.Title)
			if n := utf8.RuneCountInString(title); n < minMilestoneTitle || n > maxMilestoneTitle {
				return nil, pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("items[%d].milestones[%d]: title must be %d-%d characters", i, j, minMilestoneTitle, maxMilestoneTitle))
			}
			if !m.Amount.IsPositive() {
				return nil, pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("items[%d].milestones[%d]: amount must be > 0", i, j))
			}
			if !money.IsCents(m.Amount) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("items[%d].milestones[%d]: amount must have at most %d decimal places", i, j, money.Places)).
					WithReason(pkgerrors.ReasonMilestoneMismatch)
			}
			milestones = append(milestones, MilestoneRequest{Title: title, Amount: m.Amount})
		}
		item.Milestones = milestones
		out = append(out, item)
	}
	return out, nil
}

// NormalizeCategory is the form stored in a buyer's browsing history.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
