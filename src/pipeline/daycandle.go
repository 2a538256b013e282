package pipeline

import (
	"github.com/shopspring/decimal"

	"pumpscanner/src/model"
)

// BullishRatio counts green daily bodies over the window. The bool is false
// when there are no candles to judge.
func BullishRatio(candles []model.Candle) (decimal.Decimal, bool) {
	if len(candles) == 0 {
		return decimal.Zero, false
	}

	bullish := 0
	for _, c := range candles {
		if c.IsBullish() {
			bullish++
		}
	}

	return decimal.NewFromInt(int64(bullish)).Div(decimal.NewFromInt(int64(len(candles)))), true
}

// dayCandleScreen tags one survivor. Missing or empty data fails closed as
// DAY_CANDLE_UNAVAILABLE rather than halting the pipeline.
func dayCandleScreen(candles []model.Candle, fetchErr error, minRatio decimal.Decimal, verdict model.FilterVerdict) (bool, model.FilterVerdict) {
	if fetchErr != nil || len(candles) == 0 {
		verdict.FailReasons = append(verdict.FailReasons, model.FailDayCandleUnavailable)
		return false, verdict
	}

	ratio, ok := BullishRatio(candles)
	if !ok {
		verdict.FailReasons = append(verdict.FailReasons, model.FailDayCandleUnavailable)
		return false, verdict
	}

	verdict.Metrics.BullishRatio = ratio
	if ratio.LessThan(minRatio) {
		verdict.FailReasons = append(verdict.FailReasons, model.FailDayCandleBearish)
		return false, verdict
	}

	verdict.Passed = true
	return true, verdict
}
