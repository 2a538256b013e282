package trader

import (
	"github.com/shopspring/decimal"

	"pumpscanner/src/model"
)

// SessionSummary aggregates the realized trades of one trading session.
type SessionSummary struct {
	Trades            []model.RealizedTrade
	TradeCount        int
	TotalBuyNotional  decimal.Decimal
	TotalSellNotional decimal.Decimal
	ProfitAmount      decimal.Decimal
	ProfitPct         decimal.Decimal
}

// Summarize folds realized trades into the aggregate the exit-batch
// notification reports.
func Summarize(trades []model.RealizedTrade) SessionSummary {
	summary := SessionSummary{Trades: trades, TradeCount: len(trades)}

	for _, t := range trades {
		summary.TotalBuyNotional = summary.TotalBuyNotional.Add(t.TotalBuyNotional)
		summary.TotalSellNotional = summary.TotalSellNotional.Add(t.TotalSellNotional)
	}

	summary.ProfitAmount = summary.TotalSellNotional.Sub(summary.TotalBuyNotional)
	if summary.TotalBuyNotional.IsPositive() {
		summary.ProfitPct = summary.TotalSellNotional.
			Div(summary.TotalBuyNotional).
			Sub(decimal.NewFromInt(1)).
			Mul(decimal.NewFromInt(100))
	}

	return summary
}
