package reputation

import (
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/angelmondragon/gigescrow-backend/pkg/money"
	"github.com/shopspring/decimal"
)

// Inputs are the seller aggregates the score and tier are derived from.
type Inputs struct {
	CompletedOrders int64
	Revenue         decimal.Decimal
	AverageRating   decimal.Decimal
	Disputes        int64
}

type tierRule struct {
	level       enums.SellerLevel
	minOrders   int64
	minRating   decimal.Decimal
	maxDisputes int64
	minRevenue  decimal.Decimal
}

// Highest bar first; the first matching rule wins.
var tierRules = []tierRule{
	{enums.SellerLevelTopRated, 50, decimal.RequireFromString("4.7"), 2, decimal.NewFromInt(5000)},
	{enums.SellerLevelLevel2, 20, decimal.RequireFromString("4.4"), 4, decimal.NewFromInt(2000)},
	{enums.SellerLevelLevel1, 8, decimal.RequireFromString("4.0"), 6, decimal.NewFromInt(500)},
}

var (
	orderWeight   = decimal.RequireFromString("1.2")
	ratingWeight  = decimal.NewFromInt(15)
	disputeWeight = decimal.NewFromInt(8)
	revenueDivide = decimal.NewFromInt(200)
	maxScore      = decimal.NewFromInt(100)
)

// Score is clamp(orders*1.2 + rating*15 - disputes*8 + revenue/200, 0, 100)
// rounded to cents.
func Score(in Inputs) decimal.Decimal {
	raw := decimal.NewFromInt(in.CompletedOrders).Mul(orderWeight).
		Add(in.AverageRating.Mul(ratingWeight)).
		Sub(decimal.NewFromInt(in.Disputes).Mul(disputeWeight)).
		Add(in.Revenue.Div(revenueDivide))
	return money.Clamp(money.Round2(raw), decimal.Zero, maxScore)
}

func Tier(in Inputs) enums.SellerLevel {
	for _, rule := range tierRules {
		if in.CompletedOrders >= rule.minOrders &&
			in.AverageRating.GreaterThanOrEqual(rule.minRating) &&
			in.Disputes <= rule.maxDisputes &&
			in.Revenue.GreaterThanOrEqual(rule.minRevenue) {
			return rule.level
		}
	}
	return enums.SellerLevelNew
}
