package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/money"
	"github.com/shopspring/decimal"
)

// Package is one named tier in a service's packages column.
type Package struct {
	Price        decimal.Decimal `json:"price"`
	DeliveryDays int             `json:"deliveryDays,omitempty"`
	Description  string          `json:"description,omitempty"`
}

// Packages decodes the packages column. A null column yields an empty map.
func Packages(svc *models.Service) (map[enums.PackageType]Package, error) {
	out := map[enums.PackageType]Package{}
	if len(svc.Packages) == 0 || string(svc.Packages) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(svc.Packages, &out); err != nil {
		return nil, fmt.Errorf("decode packages for service %s: %w", svc.ID, err)
	}
	return out, nil
}

// ResolvePrice returns the price a buyer pays for pkg. "single" (or empty)
// uses the listing price; named tiers must exist with a positive price.
func ResolvePrice(svc *models.Service, pkg enums.PackageType) (decimal.Decimal, error) {
	if pkg == "" || pkg == enums.PackageTypeSingle {
		if !svc.Price.IsPositive() {
			return decimal.Zero, unavailable(svc, enums.PackageTypeSingle)
		}
		return money.Round2(svc.Price), nil
	}
	if !pkg.IsValid() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid package type %q", pkg))
	}

	tiers, err := Packages(svc)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read service packages")
	}
	tier, ok := tiers[pkg]
	if !ok || !tier.Price.IsPositive() {
		return decimal.Zero, unavailable(svc, pkg)
	}
	return money.Round2(tier.Price), nil
}

func unavailable(svc *models.Service, pkg enums.PackageType) error {
	return pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("package %q is not available for service %s", pkg, svc.ID)).
		WithReason(pkgerrors.ReasonPackageUnavailable)
}
