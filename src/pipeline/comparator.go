package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"pumpscanner/src/model"
)

var hundred = decimal.NewFromInt(100)

// Comparison is the derived view of one instrument's boundary candle pair.
type Comparison struct {
	Symbol          string
	PriceChangePct  decimal.Decimal
	VolumeChangePct decimal.Decimal
	ValueChangePct  decimal.Decimal
	Rising          bool
}

func pctChange(before, at decimal.Decimal) decimal.Decimal {
	if before.IsZero() {
		return decimal.Zero
	}
	return at.Sub(before).Div(before).Mul(hundred)
}

// CompareCandles judges the hour-boundary pair. Rising requires both the
// close and the volume of the boundary minute to strictly exceed the minute
// before; equality on either side fails. A missing candle is terminal for
// the instrument in this run, there is no refetch.
func CompareCandles(pair model.CandlePair, at time.Time) (Comparison, model.FilterVerdict) {
	verdict := model.FilterVerdict{
		Symbol:    pair.Symbol,
		Stage:     model.StageCandleCompare,
		CreatedAt: at,
	}

	if pair.Before == nil || pair.At == nil {
		verdict.FailReasons = append(verdict.FailReasons, model.FailCandleMissing)
		return Comparison{Symbol: pair.Symbol}, verdict
	}

	cmp := Comparison{
		Symbol:          pair.Symbol,
		PriceChangePct:  pctChange(pair.Before.Close, pair.At.Close),
		VolumeChangePct: pctChange(pair.Before.Volume, pair.At.Volume),
		ValueChangePct:  pctChange(pair.Before.Value, pair.At.Value),
	}

	cmp.Rising = pair.At.Close.GreaterThan(pair.Before.Close) &&
		pair.At.Volume.GreaterThan(pair.Before.Volume)

	verdict.Passed = cmp.Rising
	if !cmp.Rising {
		verdict.FailReasons = append(verdict.FailReasons, model.FailNotRising)
	}

	verdict.Metrics.PriceChangePct = cmp.PriceChangePct
	verdict.Metrics.VolumeChangePct = cmp.VolumeChangePct
	verdict.Metrics.ValueChangePct = cmp.ValueChangePct

	return cmp, verdict
}
