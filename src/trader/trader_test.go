package trader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpscanner/src/model"
)

type fakeExchange struct {
	buys       []struct{ Symbol, Notional string }
	buyErrs    map[string]error
	sells      []struct{ Symbol, Volume string }
	sellErr    error
	limits     []struct{ Symbol, Volume, Price string }
	limitErr   error
	cancels    []string
	cancelErr  error
	statuses   map[string]model.OrderStatus
	prices     map[string]decimal.Decimal
	pricesErr  error
	balance    decimal.Decimal
	balanceErr error
}

func (f *fakeExchange) AvailableBalance(currency string) (decimal.Decimal, error) {
	return f.balance, f.balanceErr
}

func (f *fakeExchange) BuyMarket(symbol string, notional, quotePrice decimal.Decimal) (model.OrderFill, error) {
	if err := f.buyErrs[symbol]; err != nil {
		return model.OrderFill{}, err
	}
	f.buys = append(f.buys, struct{ Symbol, Notional string }{symbol, notional.String()})
	price := quotePrice
	if price.IsZero() {
		price = decimal.NewFromInt(1000)
	}
	return model.OrderFill{
		Symbol:   symbol,
		Volume:   notional.Div(price),
		AvgPrice: price,
		Notional: notional,
	}, nil
}

func (f *fakeExchange) SellMarket(symbol string, volume, quotePrice decimal.Decimal) (model.OrderFill, error) {
	if f.sellErr != nil {
		return model.OrderFill{}, f.sellErr
	}
	f.sells = append(f.sells, struct{ Symbol, Volume string }{symbol, volume.String()})
	return model.OrderFill{
		Symbol:   symbol,
		Volume:   volume,
		AvgPrice: quotePrice,
		Notional: quotePrice.Mul(volume),
	}, nil
}

func (f *fakeExchange) SellLimit(symbol string, volume, price decimal.Decimal) (string, error) {
	if f.limitErr != nil {
		return "", f.limitErr
	}
	f.limits = append(f.limits, struct{ Symbol, Volume, Price string }{symbol, volume.String(), price.String()})
	return "limit-" + symbol, nil
}

func (f *fakeExchange) OrderStatus(orderID string) (model.OrderStatus, error) {
	return f.statuses[orderID], nil
}

func (f *fakeExchange) CancelOrder(orderID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancels = append(f.cancels, orderID)
	return nil
}

func (f *fakeExchange) LastPrices(symbols []string) (map[string]decimal.Decimal, error) {
	return f.prices, f.pricesErr
}

func testTraderConfig() Config {
	return Config{
		QuoteCurrency:  "KRW",
		SellPercentage: decimal.RequireFromString("3"),
		SellRatio:      decimal.RequireFromString("0.5"),
		StopLossPct:    decimal.RequireFromString("5"),
		EntryPacing:    time.Millisecond,
	}
}

func newTestTrader(t *testing.T, exchange Exchange) (*Trader, *Coordinator) {
	t.Helper()

	coord, _ := startCoordinator(t, nil)
	nullLogger, _ := logrustest.NewNullLogger()
	trd := NewTrader(exchange, coord, testTraderConfig(), logrus.NewEntry(nullLogger))
	trd.sleep = func(time.Duration) {}
	return trd, coord
}

func ranked(symbol, lastPrice string) model.RankedCandidate {
	return model.RankedCandidate{Symbol: symbol, LastPrice: decimal.RequireFromString(lastPrice)}
}

func alloc(symbol, notional string) model.Allocation {
	return model.Allocation{Symbol: symbol, Notional: decimal.RequireFromString(notional)}
}

func TestEnterBatch(t *testing.T) {
	exchange := &fakeExchange{}
	trd, coord := newTestTrader(t, exchange)

	exitAt := time.Now().Add(time.Hour)
	picked := []model.RankedCandidate{ranked("KRW-BTC", "1000"), ranked("KRW-ETH", "2000")}
	allocations := []model.Allocation{alloc("KRW-BTC", "100000"), alloc("KRW-ETH", "100000")}

	entered := trd.EnterBatch(context.Background(), picked, allocations, exitAt)

	assert.Equal(t, 2, entered)
	assert.Len(t, exchange.buys, 2)
	require.Len(t, exchange.limits, 2)

	// Half the 100 bought units, at the entry price marked up 3% and rounded
	// down to the 1,000-9,999 tick of 10.
	assert.Equal(t, "50", exchange.limits[0].Volume)
	assert.Equal(t, "1030", exchange.limits[0].Price)

	positions := coord.OpenPositions()
	assert.Len(t, positions, 2)
}

func TestEnterBatchSkipsSkippedAllocations(t *testing.T) {
	exchange := &fakeExchange{}
	trd, _ := newTestTrader(t, exchange)

	allocations := []model.Allocation{
		{Symbol: "KRW-SMALL", Notional: decimal.RequireFromString("4000"), Skipped: true, SkipReason: model.ErrCodeOrderMinNotional},
		alloc("KRW-BIG", "100000"),
	}

	entered := trd.EnterBatch(context.Background(), []model.RankedCandidate{ranked("KRW-BIG", "1000")}, allocations, time.Now().Add(time.Hour))

	assert.Equal(t, 1, entered)
	require.Len(t, exchange.buys, 1)
	assert.Equal(t, "KRW-BIG", exchange.buys[0].Symbol)
}

func TestEnterBatchDropsFailedBuysWithoutRetry(t *testing.T) {
	exchange := &fakeExchange{
		buyErrs: map[string]error{"KRW-FAIL": errors.New("insufficient_funds_bid")},
	}
	trd, coord := newTestTrader(t, exchange)

	picked := []model.RankedCandidate{ranked("KRW-FAIL", "1000"), ranked("KRW-OK", "1000")}
	allocations := []model.Allocation{alloc("KRW-FAIL", "100000"), alloc("KRW-OK", "100000")}

	entered := trd.EnterBatch(context.Background(), picked, allocations, time.Now().Add(time.Hour))

	assert.Equal(t, 1, entered)
	assert.Len(t, coord.OpenPositions(), 1)
}

func TestEnterBatchToleratesLimitOrderFailure(t *testing.T) {
	exchange := &fakeExchange{limitErr: errors.New("too_many_requests")}
	trd, coord := newTestTrader(t, exchange)

	entered := trd.EnterBatch(context.Background(), []model.RankedCandidate{ranked("KRW-BTC", "1000")}, []model.Allocation{alloc("KRW-BTC", "100000")}, time.Now().Add(time.Hour))

	// The position is still tracked; stop-loss and the timer cover it.
	assert.Equal(t, 1, entered)
	positions := coord.OpenPositions()
	require.Len(t, positions, 1)
	assert.Empty(t, positions[0].LimitSellOrderID)
}

func TestEnterBatchStopsOnCancel(t *testing.T) {
	exchange := &fakeExchange{}
	trd, _ := newTestTrader(t, exchange)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entered := trd.EnterBatch(ctx, []model.RankedCandidate{ranked("KRW-BTC", "1000")}, []model.Allocation{alloc("KRW-BTC", "100000")}, time.Now().Add(time.Hour))

	assert.Zero(t, entered)
	assert.Empty(t, exchange.buys)
}

func TestMonitorLiquidatesOnStopLoss(t *testing.T) {
	exchange := &fakeExchange{
		prices: map[string]decimal.Decimal{
			// 6% under the 1000 entry, past the 5% stop.
			"KRW-BTC": decimal.RequireFromString("940"),
		},
	}
	_, coord := newTestTrader(t, exchange)

	pos := openPosition("KRW-BTC")
	pos.LimitSellOrderID = "limit-KRW-BTC"
	coord.Track(pos)

	nullLogger, _ := logrustest.NewNullLogger()
	monitor := NewMonitor(exchange, coord, logrus.NewEntry(nullLogger))
	monitor.cycle()

	assert.Equal(t, []string{"limit-KRW-BTC"}, exchange.cancels)
	require.Len(t, exchange.sells, 1)
	assert.Equal(t, "10", exchange.sells[0].Volume)

	realized := coord.Realized()
	require.Len(t, realized, 1)
	assert.Equal(t, model.SubTradeStopLoss, realized[0].SubTrades[0].Kind)
}

func TestMonitorLeavesHealthyPositionsAlone(t *testing.T) {
	exchange := &fakeExchange{
		prices: map[string]decimal.Decimal{
			"KRW-BTC": decimal.RequireFromString("990"),
		},
	}
	_, coord := newTestTrader(t, exchange)
	coord.Track(openPosition("KRW-BTC"))

	nullLogger, _ := logrustest.NewNullLogger()
	monitor := NewMonitor(exchange, coord, logrus.NewEntry(nullLogger))
	monitor.cycle()

	assert.Empty(t, exchange.sells)
	assert.Len(t, coord.OpenPositions(), 1)
}

func TestMonitorReleasesClaimOnSellFailure(t *testing.T) {
	exchange := &fakeExchange{
		sellErr: errors.New("server_error"),
		prices: map[string]decimal.Decimal{
			"KRW-BTC": decimal.RequireFromString("900"),
		},
	}
	_, coord := newTestTrader(t, exchange)
	coord.Track(openPosition("KRW-BTC"))

	nullLogger, _ := logrustest.NewNullLogger()
	monitor := NewMonitor(exchange, coord, logrus.NewEntry(nullLogger))
	monitor.cycle()

	// The failed liquidation releases the claim so the next cycle retries.
	assert.Len(t, coord.OpenPositions(), 1)
}

func TestMonitorDetectsFilledLimitOrder(t *testing.T) {
	exchange := &fakeExchange{
		prices: map[string]decimal.Decimal{"KRW-BTC": decimal.RequireFromString("1040")},
		statuses: map[string]model.OrderStatus{
			"limit-KRW-BTC": {
				OrderID:      "limit-KRW-BTC",
				Symbol:       "KRW-BTC",
				State:        model.OrderStateDone,
				FilledVolume: decimal.RequireFromString("5"),
				AvgFillPrice: decimal.RequireFromString("1030"),
			},
		},
	}
	_, coord := newTestTrader(t, exchange)

	pos := openPosition("KRW-BTC")
	pos.LimitSellOrderID = "limit-KRW-BTC"
	pos.LimitSellTargetQty = decimal.RequireFromString("5")
	pos.LimitSellPrice = decimal.RequireFromString("1030")
	coord.Track(pos)

	nullLogger, _ := logrustest.NewNullLogger()
	monitor := NewMonitor(exchange, coord, logrus.NewEntry(nullLogger))
	monitor.cycle()

	positions := coord.OpenPositions()
	require.Len(t, positions, 1)
	assert.Equal(t, model.PositionStatusPartiallyClosed, positions[0].Status)
	assert.True(t, decimal.RequireFromString("5").Equal(positions[0].LimitSellFilledQty))
}

func TestMonitorRecordsCancelledOrderPartialFill(t *testing.T) {
	exchange := &fakeExchange{
		prices: map[string]decimal.Decimal{"KRW-BTC": decimal.RequireFromString("990")},
		statuses: map[string]model.OrderStatus{
			"limit-KRW-BTC": {
				OrderID:      "limit-KRW-BTC",
				Symbol:       "KRW-BTC",
				State:        model.OrderStateCanceled,
				FilledVolume: decimal.RequireFromString("3"),
				AvgFillPrice: decimal.RequireFromString("1030"),
			},
		},
	}
	_, coord := newTestTrader(t, exchange)

	pos := openPosition("KRW-BTC")
	pos.LimitSellOrderID = "limit-KRW-BTC"
	pos.LimitSellTargetQty = decimal.RequireFromString("5")
	pos.LimitSellPrice = decimal.RequireFromString("1030")
	coord.Track(pos)

	nullLogger, _ := logrustest.NewNullLogger()
	monitor := NewMonitor(exchange, coord, logrus.NewEntry(nullLogger))
	monitor.cycle()

	// The slice that executed before the cancel is recorded like any fill.
	positions := coord.OpenPositions()
	require.Len(t, positions, 1)
	assert.Equal(t, model.PositionStatusPartiallyClosed, positions[0].Status)
	assert.True(t, decimal.RequireFromString("3").Equal(positions[0].LimitSellFilledQty))
	assert.True(t, decimal.RequireFromString("7").Equal(positions[0].RemainingQuantity))
	assert.Empty(t, exchange.sells)
}

func TestMonitorStopLossSellsTrueRemainderAfterCancelledPartialFill(t *testing.T) {
	exchange := &fakeExchange{
		prices: map[string]decimal.Decimal{
			// 6% under the 1000 entry, past the 5% stop.
			"KRW-BTC": decimal.RequireFromString("940"),
		},
		statuses: map[string]model.OrderStatus{
			"limit-KRW-BTC": {
				OrderID:      "limit-KRW-BTC",
				Symbol:       "KRW-BTC",
				State:        model.OrderStateCanceled,
				FilledVolume: decimal.RequireFromString("4"),
				AvgFillPrice: decimal.RequireFromString("1030"),
			},
		},
	}
	_, coord := newTestTrader(t, exchange)

	pos := openPosition("KRW-BTC")
	pos.LimitSellOrderID = "limit-KRW-BTC"
	pos.LimitSellTargetQty = decimal.RequireFromString("5")
	pos.LimitSellPrice = decimal.RequireFromString("1030")
	coord.Track(pos)

	nullLogger, _ := logrustest.NewNullLogger()
	monitor := NewMonitor(exchange, coord, logrus.NewEntry(nullLogger))
	monitor.cycle()

	// Only the 6 units the account still holds are market-sold, and the 4
	// that filled before the cancel reach the realized trade once.
	require.Len(t, exchange.sells, 1)
	assert.Equal(t, "6", exchange.sells[0].Volume)

	realized := coord.Realized()
	require.Len(t, realized, 1)
	require.Len(t, realized[0].SubTrades, 2)
	assert.Equal(t, model.SubTradeLimitSell, realized[0].SubTrades[0].Kind)
	assert.True(t, decimal.RequireFromString("4").Equal(realized[0].SubTrades[0].Quantity))
	assert.Equal(t, model.SubTradeStopLoss, realized[0].SubTrades[1].Kind)
	assert.True(t, decimal.RequireFromString("6").Equal(realized[0].SubTrades[1].Quantity))

	// sell = 4*1030 + 6*940 = 9760 against buy 10000.
	assert.True(t, decimal.RequireFromString("9760").Equal(realized[0].TotalSellNotional), "got %s", realized[0].TotalSellNotional)
}

func TestExitTimerForcesExitAtDeadline(t *testing.T) {
	exchange := &fakeExchange{}
	_, coord := newTestTrader(t, exchange)

	pos := openPosition("KRW-BTC")
	pos.LimitSellOrderID = "limit-KRW-BTC"
	pos.LimitSellTargetQty = decimal.RequireFromString("5")
	coord.Track(pos)

	nullLogger, _ := logrustest.NewNullLogger()
	timer := NewExitTimer(exchange, coord, logrus.NewEntry(nullLogger))
	timer.Run(context.Background(), time.Now().Add(-time.Second))

	assert.Equal(t, []string{"limit-KRW-BTC"}, exchange.cancels)
	require.Len(t, exchange.sells, 1)
	assert.Equal(t, "10", exchange.sells[0].Volume)

	realized := coord.Realized()
	require.Len(t, realized, 1)
	assert.Equal(t, model.SubTradeTimedExit, realized[0].SubTrades[0].Kind)
}

func TestExitTimerSellsTrueRemainderAfterCancelledPartialFill(t *testing.T) {
	exchange := &fakeExchange{
		statuses: map[string]model.OrderStatus{
			"limit-KRW-BTC": {
				OrderID:      "limit-KRW-BTC",
				Symbol:       "KRW-BTC",
				State:        model.OrderStateCanceled,
				FilledVolume: decimal.RequireFromString("4"),
				AvgFillPrice: decimal.RequireFromString("1030"),
			},
		},
	}
	_, coord := newTestTrader(t, exchange)

	pos := openPosition("KRW-BTC")
	pos.LimitSellOrderID = "limit-KRW-BTC"
	pos.LimitSellTargetQty = decimal.RequireFromString("5")
	pos.LimitSellPrice = decimal.RequireFromString("1030")
	coord.Track(pos)

	nullLogger, _ := logrustest.NewNullLogger()
	timer := NewExitTimer(exchange, coord, logrus.NewEntry(nullLogger))
	timer.Run(context.Background(), time.Now().Add(-time.Second))

	// The cancel races the fill; the re-read finds 4 units already sold, so
	// the forced exit sells only the 6 the account still holds.
	assert.Equal(t, []string{"limit-KRW-BTC"}, exchange.cancels)
	require.Len(t, exchange.sells, 1)
	assert.Equal(t, "6", exchange.sells[0].Volume)

	realized := coord.Realized()
	require.Len(t, realized, 1)
	require.Len(t, realized[0].SubTrades, 2)
	assert.Equal(t, model.SubTradeLimitSell, realized[0].SubTrades[0].Kind)
	assert.Equal(t, model.SubTradeTimedExit, realized[0].SubTrades[1].Kind)
	assert.True(t, decimal.RequireFromString("6").Equal(realized[0].SubTrades[1].Quantity))
}

func TestExitTimerCanceledBeforeDeadline(t *testing.T) {
	exchange := &fakeExchange{}
	_, coord := newTestTrader(t, exchange)
	coord.Track(openPosition("KRW-BTC"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	nullLogger, _ := logrustest.NewNullLogger()
	timer := NewExitTimer(exchange, coord, logrus.NewEntry(nullLogger))
	timer.Run(ctx, time.Now().Add(time.Hour))

	assert.Empty(t, exchange.sells)
	assert.Len(t, coord.OpenPositions(), 1)
}

func TestSummarize(t *testing.T) {
	trades := []model.RealizedTrade{
		{
			TotalBuyNotional:  decimal.RequireFromString("10000"),
			TotalSellNotional: decimal.RequireFromString("10300"),
			ProfitAmount:      decimal.RequireFromString("300"),
		},
		{
			TotalBuyNotional:  decimal.RequireFromString("10000"),
			TotalSellNotional: decimal.RequireFromString("9500"),
			ProfitAmount:      decimal.RequireFromString("-500"),
		},
	}

	summary := Summarize(trades)

	assert.Equal(t, 2, summary.TradeCount)
	assert.True(t, decimal.RequireFromString("20000").Equal(summary.TotalBuyNotional))
	assert.True(t, decimal.RequireFromString("19800").Equal(summary.TotalSellNotional))
	assert.True(t, decimal.RequireFromString("-200").Equal(summary.ProfitAmount))
	assert.True(t, decimal.RequireFromString("-1").Equal(summary.ProfitPct), "got %s", summary.ProfitPct)
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)

	assert.Zero(t, summary.TradeCount)
	assert.True(t, summary.ProfitPct.IsZero())
}
