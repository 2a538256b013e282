package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Stage string

const (
	StageCandleCompare Stage = "candle_compare"
	StageTurnover      Stage = "turnover"
	StagePriceVolume   Stage = "price_volume"
	StageFeasibility   Stage = "feasibility"
	StageSlippage      Stage = "slippage"
	StageDayCandle     Stage = "day_candle"
)

type FailReason string

const (
	FailCandleMissing        FailReason = "CANDLE_MISSING"
	FailNotRising            FailReason = "NOT_RISING"
	FailTurnoverBelowMin     FailReason = "TURNOVER_BELOW_MIN"
	FailTurnoverAboveMax     FailReason = "TURNOVER_ABOVE_MAX"
	FailPriceOutOfBounds     FailReason = "PRICE_OUT_OF_BOUNDS"
	FailVolumeBelowMin       FailReason = "VOLUME_BELOW_MIN"
	FailOrderbookEmpty       FailReason = "ORDERBOOK_EMPTY"
	FailSpreadExceeded       FailReason = "SPREAD_EXCEEDED"
	FailSlippageExceeded     FailReason = "SLIPPAGE_EXCEEDED"
	FailDayCandleUnavailable FailReason = "DAY_CANDLE_UNAVAILABLE"
	FailDayCandleBearish     FailReason = "DAY_CANDLE_BEARISH"
)

// Execution-side classifications. These tag skip logs and order failures,
// they never appear on filter verdicts.
const (
	ErrCodeOrderAPI           = "ORDER_API_ERROR"
	ErrCodeOrderMinNotional   = "ORDER_MIN_NOTIONAL"
	ErrCodeBalanceUnavailable = "BALANCE_UNAVAILABLE"
)

// Metrics are the raw numbers a stage looked at when it judged an instrument.
// Fields stay at their zero value when the stage never computed them; Fill in
// particular remains nil when the feasibility stage short-circuited on spread.
type Metrics struct {
	LastPrice       decimal.Decimal `json:"last_price"`
	Turnover24h     decimal.Decimal `json:"turnover_24h"`
	PriceChangePct  decimal.Decimal `json:"price_change_pct"`
	VolumeChangePct decimal.Decimal `json:"volume_change_pct"`
	ValueChangePct  decimal.Decimal `json:"value_change_pct"`
	SpreadPct       decimal.Decimal `json:"spread_pct"`
	BullishRatio    decimal.Decimal `json:"bullish_ratio"`
	Fill            *FillSimulation `json:"fill,omitempty"`
}

// FilterVerdict is one append-only audit entry: what one stage decided about
// one instrument. FailReasons may hold more than one entry where a stage
// checks several sub-conditions.
type FilterVerdict struct {
	Symbol      string       `json:"symbol"`
	Stage       Stage        `json:"stage"`
	Passed      bool         `json:"passed"`
	FailReasons []FailReason `json:"fail_reasons,omitempty"`
	Metrics     Metrics      `json:"metrics"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (v FilterVerdict) HasReason(r FailReason) bool {
	for _, got := range v.FailReasons {
		if got == r {
			return true
		}
	}
	return false
}

// RankedCandidate is a full-chain survivor with every metric the selector
// sorts on. DayCandlePass stays nil while the day-candle screen is disabled.
type RankedCandidate struct {
	Symbol          string          `json:"symbol"`
	LastPrice       decimal.Decimal `json:"last_price"`
	Turnover24h     decimal.Decimal `json:"turnover_24h"`
	PriceChangePct  decimal.Decimal `json:"price_change_pct"`
	VolumeChangePct decimal.Decimal `json:"volume_change_pct"`
	ValueChangePct  decimal.Decimal `json:"value_change_pct"`
	SpreadPct       decimal.Decimal `json:"spread_pct"`
	Fill            FillSimulation  `json:"fill"`
	DayCandlePass   *bool           `json:"day_candle_pass,omitempty"`
}

// Allocation is the selector's sizing decision for one ranked candidate.
type Allocation struct {
	Symbol     string          `json:"symbol"`
	Notional   decimal.Decimal `json:"notional"`
	Skipped    bool            `json:"skipped"`
	SkipReason string          `json:"skip_reason,omitempty"`
}
