package connectors

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"pumpscanner/src/externalmodel"
	"pumpscanner/src/mapper"
	"pumpscanner/src/model"
	"pumpscanner/src/utils"
)

// Upbit only reports fill trades after the order settles; a short pause
// before reading detail avoids an empty trades list on fresh orders.
const orderSettleDelay = 2 * time.Second

// UpbitExchange is the domain-typed facade over the raw client. The pipeline
// and trader consume this, never the wire shapes.
type UpbitExchange struct {
	client *Client
	quote  string
	sleep  func(time.Duration)
}

func NewUpbitExchange(cfg Config) *UpbitExchange {
	return &UpbitExchange{
		client: NewClient(cfg),
		quote:  cfg.QuoteCurrency,
		sleep:  time.Sleep,
	}
}

// Symbols lists the quote-currency markets, minus the excluded ones. Bare
// exclude entries are normalized to the market prefix ("BTC" -> "KRW-BTC").
func (e *UpbitExchange) Symbols(exclude []string) ([]string, error) {
	markets, err := e.client.Markets()
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, sym := range exclude {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		if !strings.Contains(sym, "-") {
			sym = e.quote + "-" + sym
		}
		excluded[sym] = struct{}{}
	}

	prefix := e.quote + "-"
	symbols := make([]string, 0, len(markets))
	for _, m := range markets {
		if !strings.HasPrefix(m.Market, prefix) {
			continue
		}
		if _, skip := excluded[m.Market]; skip {
			continue
		}
		symbols = append(symbols, m.Market)
	}

	return symbols, nil
}

// Instruments fetches 24h snapshots for one chunk of symbols (max 100 per
// exchange call).
func (e *UpbitExchange) Instruments(symbols []string) ([]model.Instrument, error) {
	tickers, err := e.client.Tickers(symbols)
	if err != nil {
		return nil, err
	}

	instruments := make([]model.Instrument, 0, len(tickers))
	for _, t := range tickers {
		instruments = append(instruments, mapper.MapTickerToInstrument(t))
	}
	return instruments, nil
}

// BoundaryCandles fetches the boundary minute and the minute before it.
// Either side of the pair is nil when the exchange has no row for that
// bucket; the comparator decides what that means.
func (e *UpbitExchange) BoundaryCandles(symbol string, boundary time.Time) (model.CandlePair, error) {
	pair := model.CandlePair{Symbol: symbol}

	boundary = utils.ResetTime(boundary.In(utils.MarketLocation()), "minute")
	raw, err := e.client.MinuteCandles(symbol, boundary.Add(time.Minute), 2)
	if err != nil {
		return pair, err
	}

	// Candle timestamps are KST wall-clock buckets; match on the formatted
	// minute rather than on instants to stay location-agnostic.
	const bucketLayout = "2006-01-02 15:04"
	atKey := boundary.Format(bucketLayout)
	beforeKey := boundary.Add(-time.Minute).Format(bucketLayout)

	for _, c := range mapper.MapCandles(raw) {
		candle := c
		switch candle.Datetime.Format(bucketLayout) {
		case atKey:
			pair.At = &candle
		case beforeKey:
			pair.Before = &candle
		}
	}

	return pair, nil
}

func (e *UpbitExchange) DayCandles(symbol string, count int) ([]model.Candle, error) {
	raw, err := e.client.DayCandles(symbol, count)
	if err != nil {
		return nil, err
	}
	return mapper.MapCandles(raw), nil
}

func (e *UpbitExchange) Orderbook(symbol string) (*model.OrderBookQuote, error) {
	book, err := e.client.Orderbook(symbol)
	if err != nil {
		return nil, err
	}
	return mapper.MapOrderbook(book), nil
}

// LastPrices returns the current trade price per symbol for one chunk.
func (e *UpbitExchange) LastPrices(symbols []string) (map[string]decimal.Decimal, error) {
	tickers, err := e.client.Tickers(symbols)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]decimal.Decimal, len(tickers))
	for _, t := range tickers {
		prices[t.Market] = t.TradePrice
	}
	return prices, nil
}

// AvailableBalance returns the unlocked balance of one currency.
func (e *UpbitExchange) AvailableBalance(currency string) (decimal.Decimal, error) {
	accounts, err := e.client.Accounts()
	if err != nil {
		return decimal.Zero, err
	}

	for _, acc := range accounts {
		if acc.Currency == currency {
			return acc.Balance, nil
		}
	}
	return decimal.Zero, nil
}

// BuyMarket spends notional at market, waits for settlement, and returns the
// weighted fill. The quote price is the last-resort entry price when the
// exchange returns no usable fill detail.
func (e *UpbitExchange) BuyMarket(symbol string, notional, quotePrice decimal.Decimal) (model.OrderFill, error) {
	placed, err := e.client.BuyMarket(symbol, notional)
	if err != nil {
		return model.OrderFill{}, err
	}

	return e.settleFill(symbol, placed, notional, quotePrice)
}

// SellMarket liquidates volume at market and returns the weighted fill.
func (e *UpbitExchange) SellMarket(symbol string, volume, quotePrice decimal.Decimal) (model.OrderFill, error) {
	placed, err := e.client.SellMarket(symbol, volume)
	if err != nil {
		return model.OrderFill{}, err
	}

	fill, err := e.settleFill(symbol, placed, decimal.Zero, quotePrice)
	if err != nil {
		return fill, err
	}

	if fill.Volume.IsZero() {
		fill.Volume = volume
		fill.Notional = fill.AvgPrice.Mul(volume)
	}
	return fill, nil
}

func (e *UpbitExchange) settleFill(symbol string, placed *externalmodel.UpbitOrder, notional, quotePrice decimal.Decimal) (model.OrderFill, error) {
	fill := model.OrderFill{OrderID: placed.UUID, Symbol: symbol}

	e.sleep(orderSettleDelay)

	detail, err := e.client.GetOrder(placed.UUID)
	if err != nil {
		logger.WithFields(logger.Fields{
			"symbol":   symbol,
			"order_id": placed.UUID,
		}).WithError(err).Error("Failed to read order detail after placement, using quote price")
		detail = placed
	}

	fill.Volume = mapper.ExecutedVolume(detail)

	if price, ok := mapper.WeightedFillPrice(detail); ok {
		fill.AvgPrice = price
	} else if fill.Volume.IsPositive() && notional.IsPositive() {
		fill.AvgPrice = notional.Div(fill.Volume)
	} else {
		fill.AvgPrice = quotePrice
	}

	fill.Notional = fill.AvgPrice.Mul(fill.Volume)
	if notional.IsPositive() {
		fill.Notional = notional
	}

	return fill, nil
}

// SellLimit places a limit ask and returns its order id.
func (e *UpbitExchange) SellLimit(symbol string, volume, price decimal.Decimal) (string, error) {
	order, err := e.client.SellLimit(symbol, volume, price)
	if err != nil {
		return "", err
	}
	return order.UUID, nil
}

// OrderStatus reads one resting order's state and fill progress.
func (e *UpbitExchange) OrderStatus(orderID string) (model.OrderStatus, error) {
	order, err := e.client.GetOrder(orderID)
	if err != nil {
		return model.OrderStatus{}, err
	}

	status := model.OrderStatus{
		OrderID:      order.UUID,
		Symbol:       order.Market,
		State:        order.State,
		FilledVolume: mapper.ExecutedVolume(order),
	}

	if price, ok := mapper.WeightedFillPrice(order); ok {
		status.AvgFillPrice = price
	}

	return status, nil
}

func (e *UpbitExchange) CancelOrder(orderID string) error {
	if orderID == "" {
		return fmt.Errorf("empty order id")
	}
	return e.client.CancelOrder(orderID)
}
