package pipeline

import (
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"pumpscanner/src/model"
)

// Thresholds are the numeric gates of the filter chain. Zero-valued optional
// ceilings mean "disabled".
type Thresholds struct {
	MinTurnover     decimal.Decimal
	MaxTurnover     decimal.Decimal
	PriceChangeMin  decimal.Decimal
	PriceChangeMax  decimal.Decimal
	VolumeChangeMin decimal.Decimal
	MaxSpreadPct    decimal.Decimal
	MaxSlippagePct  decimal.Decimal
	ProbeNotional   decimal.Decimal
}

// candidate carries one instrument through the chain, accumulating metrics
// stage by stage.
type candidate struct {
	instrument model.Instrument
	comparison Comparison
	spreadPct  decimal.Decimal
	fill       *model.FillSimulation
}

func (c candidate) baseVerdict(stage model.Stage, at time.Time) model.FilterVerdict {
	v := model.FilterVerdict{
		Symbol:    c.instrument.Symbol,
		Stage:     stage,
		CreatedAt: at,
	}
	v.Metrics.LastPrice = c.instrument.LastPrice
	v.Metrics.Turnover24h = c.instrument.Turnover24h
	v.Metrics.PriceChangePct = c.comparison.PriceChangePct
	v.Metrics.VolumeChangePct = c.comparison.VolumeChangePct
	v.Metrics.ValueChangePct = c.comparison.ValueChangePct
	v.Metrics.SpreadPct = c.spreadPct
	v.Metrics.Fill = c.fill
	return v
}

// turnoverStage passes instruments whose 24h turnover sits inside the
// configured floor and optional ceiling.
func turnoverStage(cands []candidate, t Thresholds, at time.Time) ([]candidate, []model.FilterVerdict) {
	survivors := make([]candidate, 0, len(cands))
	verdicts := make([]model.FilterVerdict, 0, len(cands))

	for _, c := range cands {
		v := c.baseVerdict(model.StageTurnover, at)

		if c.instrument.Turnover24h.LessThan(t.MinTurnover) {
			v.FailReasons = append(v.FailReasons, model.FailTurnoverBelowMin)
		}
		if t.MaxTurnover.IsPositive() && c.instrument.Turnover24h.GreaterThan(t.MaxTurnover) {
			v.FailReasons = append(v.FailReasons, model.FailTurnoverAboveMax)
		}

		v.Passed = len(v.FailReasons) == 0
		verdicts = append(verdicts, v)
		if v.Passed {
			survivors = append(survivors, c)
		}
	}

	return survivors, verdicts
}

// deltaStage bounds the boundary-pair changes. Sub-condition failures are
// cumulative; an instrument can be out of bounds on price and short on
// volume in the same verdict.
func deltaStage(cands []candidate, t Thresholds, at time.Time) ([]candidate, []model.FilterVerdict) {
	survivors := make([]candidate, 0, len(cands))
	verdicts := make([]model.FilterVerdict, 0, len(cands))

	for _, c := range cands {
		v := c.baseVerdict(model.StagePriceVolume, at)

		priceOK := c.comparison.PriceChangePct.GreaterThanOrEqual(t.PriceChangeMin) &&
			c.comparison.PriceChangePct.LessThanOrEqual(t.PriceChangeMax)
		if !priceOK {
			v.FailReasons = append(v.FailReasons, model.FailPriceOutOfBounds)
		}

		if c.comparison.VolumeChangePct.LessThan(t.VolumeChangeMin) {
			v.FailReasons = append(v.FailReasons, model.FailVolumeBelowMin)
		}

		v.Passed = len(v.FailReasons) == 0
		verdicts = append(verdicts, v)
		if v.Passed {
			survivors = append(survivors, c)
		}
	}

	return survivors, verdicts
}

// feasibilityStage checks the spread gate first and only simulates the probe
// fill when it holds; a blown spread leaves the simulation fields empty.
// This stage never rejects on slippage, that is the next stage's call.
func feasibilityStage(c *candidate, book *model.OrderBookQuote, t Thresholds, at time.Time) model.FilterVerdict {
	v := c.baseVerdict(model.StageFeasibility, at)

	if book == nil {
		v.FailReasons = append(v.FailReasons, model.FailOrderbookEmpty)
		return v
	}

	spread, ok := book.SpreadPct()
	if !ok {
		v.FailReasons = append(v.FailReasons, model.FailOrderbookEmpty)
		return v
	}

	c.spreadPct = spread
	v.Metrics.SpreadPct = spread

	if spread.GreaterThan(t.MaxSpreadPct) {
		v.FailReasons = append(v.FailReasons, model.FailSpreadExceeded)
		return v
	}

	sim, ok := SimulateMarketBuy(book, t.ProbeNotional)
	if !ok {
		v.FailReasons = append(v.FailReasons, model.FailOrderbookEmpty)
		return v
	}

	c.fill = &sim
	v.Metrics.Fill = &sim
	v.Passed = true
	return v
}

// slippageStage gates on the probe fill's price impact.
func slippageStage(cands []candidate, t Thresholds, at time.Time) ([]candidate, []model.FilterVerdict) {
	survivors := make([]candidate, 0, len(cands))
	verdicts := make([]model.FilterVerdict, 0, len(cands))

	for _, c := range cands {
		v := c.baseVerdict(model.StageSlippage, at)

		if c.fill == nil {
			// Should not happen past feasibility; treat as an empty book.
			logger.WithField("symbol", c.instrument.Symbol).
				Warn("Slippage stage received candidate without fill simulation")
			v.FailReasons = append(v.FailReasons, model.FailOrderbookEmpty)
			verdicts = append(verdicts, v)
			continue
		}

		if c.fill.PriceDiffPct.GreaterThan(t.MaxSlippagePct) {
			v.FailReasons = append(v.FailReasons, model.FailSlippageExceeded)
			verdicts = append(verdicts, v)
			continue
		}

		v.Passed = true
		verdicts = append(verdicts, v)
		survivors = append(survivors, c)
	}

	return survivors, verdicts
}
