package enums

import "fmt"

// SellerLevel is the reputation tier derived from a seller's order history.
type SellerLevel string

const (
	SellerLevelNew      SellerLevel = "new"
	SellerLevelLevel1   SellerLevel = "level1"
	SellerLevelLevel2   SellerLevel = "level2"
	SellerLevelTopRated SellerLevel = "top_rated"
)

var validSellerLevels = []SellerLevel{
	SellerLevelNew,
	SellerLevelLevel1,
	SellerLevelLevel2,
	SellerLevelTopRated,
}

// String implements fmt.Stringer.
func (s SellerLevel) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SellerLevel.
func (s SellerLevel) IsValid() bool {
	for _, candidate := range validSellerLevels {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSellerLevel converts raw input into a SellerLevel.
func ParseSellerLevel(value string) (SellerLevel, error) {
	for _, candidate := range validSellerLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid seller level %q", value)
}
