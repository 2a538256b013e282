package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instrument is the per-run snapshot of one tradable market. The pipeline
// never refreshes it mid-run; a stale field means a stale verdict, not a refetch.
type Instrument struct {
	Symbol      string          `json:"symbol"`
	LastPrice   decimal.Decimal `json:"last_price"`
	Turnover24h decimal.Decimal `json:"turnover_24h"`
}

type Candle struct {
	Datetime time.Time       `json:"datetime"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
	Value    decimal.Decimal `json:"value"`
	Symbol   string          `json:"symbol"`
}

// IsBullish reports a green body. Equal open/close counts as not bullish.
func (c Candle) IsBullish() bool {
	return c.Close.GreaterThan(c.Open)
}

// CandlePair holds the minute preceding the hour boundary and the boundary
// minute itself. Either side may be nil when the exchange returned no row.
type CandlePair struct {
	Symbol string  `json:"symbol"`
	Before *Candle `json:"before"`
	At     *Candle `json:"at"`
}

type OrderBookLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// OrderBookQuote carries the top of book plus the ask ladder sorted ascending
// by price, the order the fill simulation walks it in.
type OrderBookQuote struct {
	Symbol    string           `json:"symbol"`
	Bids      []OrderBookLevel `json:"bids"`
	Asks      []OrderBookLevel `json:"asks"`
	Timestamp time.Time        `json:"timestamp"`
}

func (q OrderBookQuote) BestBid() (OrderBookLevel, bool) {
	if len(q.Bids) == 0 {
		return OrderBookLevel{}, false
	}
	return q.Bids[0], true
}

func (q OrderBookQuote) BestAsk() (OrderBookLevel, bool) {
	if len(q.Asks) == 0 {
		return OrderBookLevel{}, false
	}
	return q.Asks[0], true
}

// SpreadPct is (best_ask - best_bid) / best_bid * 100. The bool is false when
// either side of the book is empty or the bid is zero.
func (q OrderBookQuote) SpreadPct() (decimal.Decimal, bool) {
	bid, okBid := q.BestBid()
	ask, okAsk := q.BestAsk()
	if !okBid || !okAsk || bid.Price.IsZero() {
		return decimal.Zero, false
	}
	return ask.Price.Sub(bid.Price).Div(bid.Price).Mul(decimal.NewFromInt(100)), true
}

// FillSimulation is the result of walking the ask ladder until a target
// notional is exhausted.
type FillSimulation struct {
	TotalQuantity    decimal.Decimal `json:"total_quantity"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	AvgPrice         decimal.Decimal `json:"avg_price"`
	PriceDiffPct     decimal.Decimal `json:"price_diff_pct"`
	FilledLevelCount int             `json:"filled_level_count"`
}
