package trader

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"pumpscanner/src/connectors"
	"pumpscanner/src/model"
)

// Config holds the execution-side knobs for one trading session.
type Config struct {
	QuoteCurrency  string
	SellPercentage decimal.Decimal
	SellRatio      decimal.Decimal
	StopLossPct    decimal.Decimal
	EntryPacing    time.Duration
}

// ParseSellRatio maps the configured take-profit fraction keyword.
func ParseSellRatio(value string) (decimal.Decimal, error) {
	switch value {
	case "all":
		return decimal.NewFromInt(1), nil
	case "half":
		return decimal.NewFromFloat(0.5), nil
	case "third":
		return decimal.NewFromInt(1).Div(decimal.NewFromInt(3)), nil
	default:
		return decimal.Zero, fmt.Errorf("invalid sell ratio %q, want all, half or third", value)
	}
}

// Trader runs the entry flow: market buy, weighted entry price, tick-rounded
// partial limit sell, then hand-off to the coordinator.
type Trader struct {
	exchange Exchange
	coord    *Coordinator
	config   Config
	log      *logrus.Entry
	sleep    func(time.Duration)
	now      func() time.Time
}

func NewTrader(exchange Exchange, coord *Coordinator, config Config, log *logrus.Entry) *Trader {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if config.EntryPacing <= 0 {
		config.EntryPacing = 500 * time.Millisecond
	}

	return &Trader{
		exchange: exchange,
		coord:    coord,
		config:   config,
		log:      log,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// EnterBatch buys every sized candidate and registers the resulting
// positions. A failed buy removes that instrument from the batch for good;
// there is no retry within the run. Returns the number of entered positions.
func (t *Trader) EnterBatch(ctx context.Context, picked []model.RankedCandidate, allocations []model.Allocation, exitAt time.Time) int {
	if ctx == nil {
		ctx = context.Background()
	}

	quotes := make(map[string]decimal.Decimal, len(picked))
	for _, c := range picked {
		quotes[c.Symbol] = c.LastPrice
	}

	entered := 0
	for _, alloc := range allocations {
		if err := ctx.Err(); err != nil {
			t.log.Warn("Entry batch interrupted")
			break
		}

		if alloc.Skipped {
			continue
		}

		if t.enter(alloc, quotes[alloc.Symbol], exitAt) {
			entered++
		}

		t.sleep(t.config.EntryPacing)
	}

	return entered
}

func (t *Trader) enter(alloc model.Allocation, quotePrice decimal.Decimal, exitAt time.Time) bool {
	log := t.log.WithFields(logrus.Fields{
		"symbol":   alloc.Symbol,
		"notional": alloc.Notional,
		"currency": t.config.QuoteCurrency,
	})

	fill, err := t.exchange.BuyMarket(alloc.Symbol, alloc.Notional, quotePrice)
	if err != nil {
		log.WithField("error_code", connectors.Classify(err)).WithError(err).
			Error("Entry buy failed, instrument dropped from batch")
		return false
	}

	if !fill.Volume.IsPositive() {
		log.Error("Entry buy reported no filled volume, instrument dropped from batch")
		return false
	}

	pos := &model.Position{
		Symbol:            alloc.Symbol,
		EntryPrice:        fill.AvgPrice,
		EntryQuantity:     fill.Volume,
		EntryNotional:     fill.Notional,
		RemainingQuantity: fill.Volume,
		Status:            model.PositionStatusOpen,
		StopLossPct:       t.config.StopLossPct,
		ScheduledExitAt:   exitAt,
		OpenedAt:          t.now(),
	}

	pos.LimitSellTargetQty = fill.Volume.Mul(t.config.SellRatio)
	pos.LimitSellPrice = RoundToTick(
		fill.AvgPrice.Mul(decimal.NewFromInt(1).Add(t.config.SellPercentage.Div(hundred))),
	)

	orderID, err := t.exchange.SellLimit(alloc.Symbol, pos.LimitSellTargetQty, pos.LimitSellPrice)
	if err != nil {
		// Position stays tracked; stop-loss and the exit timer still cover it.
		log.WithField("error_code", connectors.Classify(err)).WithError(err).
			Error("Failed to place take-profit limit order")
	} else {
		pos.LimitSellOrderID = orderID
	}

	log.WithFields(logrus.Fields{
		"entry_price":  pos.EntryPrice,
		"quantity":     pos.EntryQuantity,
		"limit_price":  pos.LimitSellPrice,
		"limit_volume": pos.LimitSellTargetQty,
	}).Info("Position entered")

	t.coord.Track(pos)
	return true
}
