package mapper

import (
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"pumpscanner/src/externalmodel"
	"pumpscanner/src/model"
)

// MapTickerToInstrument converts an Upbit 24h ticker into the pipeline's
// immutable snapshot type.
func MapTickerToInstrument(t externalmodel.UpbitTicker) model.Instrument {
	return model.Instrument{
		Symbol:      t.Market,
		LastPrice:   t.TradePrice,
		Turnover24h: t.AccTradePrice24h,
	}
}

// MapOrderbook normalizes the exchange's combined bid/ask units into separate
// ladders. Upbit already sends units best-first, so index 0 is top of book.
func MapOrderbook(book *externalmodel.UpbitOrderbook) *model.OrderBookQuote {
	if book == nil {
		logger.WithField("mapper", "MapOrderbook").Error("Nil UpbitOrderbook received")
		return nil
	}

	quote := &model.OrderBookQuote{
		Symbol:    book.Market,
		Timestamp: time.UnixMilli(book.Timestamp),
	}

	for _, unit := range book.OrderbookUnits {
		if unit.AskPrice.IsPositive() {
			quote.Asks = append(quote.Asks, model.OrderBookLevel{Price: unit.AskPrice, Size: unit.AskSize})
		}
		if unit.BidPrice.IsPositive() {
			quote.Bids = append(quote.Bids, model.OrderBookLevel{Price: unit.BidPrice, Size: unit.BidSize})
		}
	}

	return quote
}

// MapCandle keys the candle by its KST bucket time, the clock the scan
// boundary is expressed in.
func MapCandle(c externalmodel.UpbitCandle) model.Candle {
	const layout = "2006-01-02T15:04:05"

	datetime, err := time.Parse(layout, c.CandleDateTimeKST)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"market": c.Market,
			"value":  c.CandleDateTimeKST,
		}).WithError(err).Error("Failed to parse candle timestamp")
	}

	return model.Candle{
		Datetime: datetime,
		Open:     c.OpeningPrice,
		High:     c.HighPrice,
		Low:      c.LowPrice,
		Close:    c.TradePrice,
		Volume:   c.CandleAccTradeVolume,
		Value:    c.CandleAccTradePrice,
		Symbol:   c.Market,
	}
}

func MapCandles(candles []externalmodel.UpbitCandle) []model.Candle {
	mapped := make([]model.Candle, 0, len(candles))
	for _, c := range candles {
		mapped = append(mapped, MapCandle(c))
	}
	return mapped
}

// WeightedFillPrice folds an order's trade detail into a notional-weighted
// average. Funds is preferred; price*volume covers trades without it. The
// bool is false when no executed volume exists to weight by.
func WeightedFillPrice(order *externalmodel.UpbitOrder) (decimal.Decimal, bool) {
	if order == nil {
		return decimal.Zero, false
	}

	totalFunds := decimal.Zero
	totalVolume := decimal.Zero

	for _, trade := range order.Trades {
		funds := trade.Funds
		if funds.IsZero() {
			funds = trade.Price.Mul(trade.Volume)
		}
		totalFunds = totalFunds.Add(funds)
		totalVolume = totalVolume.Add(trade.Volume)
	}

	if totalVolume.IsPositive() {
		return totalFunds.Div(totalVolume), true
	}

	// No per-trade detail; fall back to the order-level aggregate.
	if order.ExecutedVolume.IsPositive() && order.Price.IsPositive() {
		return order.Price, true
	}

	return decimal.Zero, false
}

// ExecutedVolume sums trade volumes, falling back to the order aggregate.
func ExecutedVolume(order *externalmodel.UpbitOrder) decimal.Decimal {
	if order == nil {
		return decimal.Zero
	}

	total := decimal.Zero
	for _, trade := range order.Trades {
		total = total.Add(trade.Volume)
	}

	if total.IsPositive() {
		return total
	}
	return order.ExecutedVolume
}
