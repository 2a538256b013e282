package pipeline

import (
	"github.com/shopspring/decimal"

	"pumpscanner/src/model"
)

// SimulateMarketBuy walks the ask ladder from the lowest price until the
// target notional is spent. When the ladder is too shallow the simulation
// reports whatever filled; price_diff_pct is measured against the top ask.
// The bool is false when there are no asks at all.
func SimulateMarketBuy(book *model.OrderBookQuote, notional decimal.Decimal) (model.FillSimulation, bool) {
	var sim model.FillSimulation

	bestAsk, ok := book.BestAsk()
	if !ok || bestAsk.Price.IsZero() {
		return sim, false
	}

	remaining := notional
	for _, level := range book.Asks {
		if !remaining.IsPositive() {
			break
		}

		levelCost := level.Price.Mul(level.Size)
		if levelCost.GreaterThanOrEqual(remaining) {
			qty := remaining.Div(level.Price)
			sim.TotalQuantity = sim.TotalQuantity.Add(qty)
			sim.TotalCost = sim.TotalCost.Add(remaining)
			sim.FilledLevelCount++
			remaining = decimal.Zero
			break
		}

		sim.TotalQuantity = sim.TotalQuantity.Add(level.Size)
		sim.TotalCost = sim.TotalCost.Add(levelCost)
		sim.FilledLevelCount++
		remaining = remaining.Sub(levelCost)
	}

	if sim.TotalQuantity.IsPositive() {
		sim.AvgPrice = sim.TotalCost.Div(sim.TotalQuantity)
		sim.PriceDiffPct = sim.AvgPrice.Sub(bestAsk.Price).Div(bestAsk.Price).Mul(hundred)
	}

	return sim, true
}
