package trader

import (
	"github.com/shopspring/decimal"
)

var (
	tickBound1 = decimal.NewFromInt(1000)
	tickBound2 = decimal.NewFromInt(10000)
	ten        = decimal.NewFromInt(10)
	hundred    = decimal.NewFromInt(100)
)

// RoundToTick snaps a price down to the exchange's tick grid. The tick grows
// with price magnitude: whole units under 1,000, tens under 10,000, hundreds
// above.
func RoundToTick(price decimal.Decimal) decimal.Decimal {
	switch {
	case price.LessThan(tickBound1):
		return price.Floor()
	case price.LessThan(tickBound2):
		return price.Div(ten).Floor().Mul(ten)
	default:
		return price.Div(hundred).Floor().Mul(hundred)
	}
}
