package enums

import "fmt"

// PackageType selects which price of a service a buyer is paying for.
type PackageType string

const (
	PackageTypeSingle   PackageType = "single"
	PackageTypeBasic    PackageType = "basic"
	PackageTypeStandard PackageType = "standard"
	PackageTypePremium  PackageType = "premium"
)

var validPackageTypes = []PackageType{
	PackageTypeSingle,
	PackageTypeBasic,
	PackageTypeStandard,
	PackageTypePremium,
}

// IsValid reports whether the value is a known PackageType.
func (p PackageType) IsValid() bool {
	for _, candidate := range validPackageTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePackageType converts raw input into a PackageType.
func ParsePackageType(value string) (PackageType, error) {
	for _, candidate := range validPackageTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid package type %q", value)
}
