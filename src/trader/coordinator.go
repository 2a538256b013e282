package trader

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"pumpscanner/src/model"
)

// Exchange is the trading surface the execution side needs. Implemented by
// connectors.UpbitExchange; tests supply fakes.
type Exchange interface {
	AvailableBalance(currency string) (decimal.Decimal, error)
	BuyMarket(symbol string, notional, quotePrice decimal.Decimal) (model.OrderFill, error)
	SellMarket(symbol string, volume, quotePrice decimal.Decimal) (model.OrderFill, error)
	SellLimit(symbol string, volume, price decimal.Decimal) (string, error)
	OrderStatus(orderID string) (model.OrderStatus, error)
	CancelOrder(orderID string) error
	LastPrices(symbols []string) (map[string]decimal.Decimal, error)
}

// intent is one queued mutation of the position book. Only the coordinator
// goroutine applies intents, which is the whole point: the monitor loop and
// the exit timer never touch a Position directly.
type intent interface {
	apply(c *Coordinator)
}

// Coordinator is the single writer of the in-memory position collection.
type Coordinator struct {
	log      *logrus.Entry
	intents  chan intent
	done     chan struct{}
	onClosed func(model.RealizedTrade)
	now      func() time.Time

	// Owned by the run loop.
	positions map[string]*model.Position
	claimed   map[string]bool
	realized  []model.RealizedTrade
}

func NewCoordinator(log *logrus.Entry, onClosed func(model.RealizedTrade)) *Coordinator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Coordinator{
		log:       log,
		intents:   make(chan intent, 64),
		done:      make(chan struct{}),
		onClosed:  onClosed,
		now:       time.Now,
		positions: make(map[string]*model.Position),
		claimed:   make(map[string]bool),
	}
}

// Run drains the intent queue until the context dies. Positions still open
// at shutdown are dropped, not resumed on restart.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case in := <-c.intents:
			in.apply(c)
		}
	}
}

// shutdown answers whatever is still queued so no caller stays blocked on a
// reply that will never come. Claims are refused from here on.
func (c *Coordinator) shutdown() {
	close(c.done)

	for {
		select {
		case in := <-c.intents:
			switch in := in.(type) {
			case claimExitIntent:
				in.reply <- false
			case snapshotIntent:
				in.reply <- nil
			case realizedIntent:
				out := make([]model.RealizedTrade, len(c.realized))
				copy(out, c.realized)
				in.reply <- out
			}
		default:
			c.log.WithField("open_positions", len(c.positions)).
				Warn("Coordinator stopped, open positions are not resumed")
			return
		}
	}
}

func (c *Coordinator) submit(in intent) {
	select {
	case c.intents <- in:
	case <-c.done:
	}
}

// ----- intents -----

type trackIntent struct {
	position *model.Position
}

func (in trackIntent) apply(c *Coordinator) {
	c.positions[in.position.Symbol] = in.position
	c.log.WithFields(logrus.Fields{
		"symbol":         in.position.Symbol,
		"entry_price":    in.position.EntryPrice,
		"entry_quantity": in.position.EntryQuantity,
	}).Info("Position tracked")
}

type limitFilledIntent struct {
	symbol string
	qty    decimal.Decimal
	price  decimal.Decimal
}

func (in limitFilledIntent) apply(c *Coordinator) {
	pos, ok := c.positions[in.symbol]
	if !ok {
		return
	}

	qty := in.qty
	if qty.GreaterThan(pos.RemainingQuantity) {
		qty = pos.RemainingQuantity
	}
	if !qty.IsPositive() {
		return
	}

	pos.LimitSellFilledQty = pos.LimitSellFilledQty.Add(qty)
	pos.RemainingQuantity = pos.RemainingQuantity.Sub(qty)
	pos.SubTrades = append(pos.SubTrades, model.SubTrade{
		Kind:         model.SubTradeLimitSell,
		Quantity:     qty,
		Price:        in.price,
		SellNotional: in.price.Mul(qty),
		BuyNotional:  pos.ApportionedBuyNotional(qty),
		ExecutedAt:   c.now(),
	})

	if pos.RemainingQuantity.IsPositive() {
		pos.Status = model.PositionStatusPartiallyClosed
		c.log.WithFields(logrus.Fields{
			"symbol":    pos.Symbol,
			"filled":    qty,
			"remaining": pos.RemainingQuantity,
		}).Info("Limit sell filled, position partially closed")
		return
	}

	c.closePosition(pos)
}

type exitIntent struct {
	symbol string
	kind   string
	fill   model.OrderFill
}

func (in exitIntent) apply(c *Coordinator) {
	pos, ok := c.positions[in.symbol]
	if !ok {
		return
	}

	qty := in.fill.Volume
	if qty.GreaterThan(pos.RemainingQuantity) || in.kind == model.SubTradeStopLoss {
		// A stop-loss always liquidates everything left.
		qty = pos.RemainingQuantity
	}

	sellNotional := in.fill.Notional
	if sellNotional.IsZero() {
		sellNotional = in.fill.AvgPrice.Mul(qty)
	}

	pos.SubTrades = append(pos.SubTrades, model.SubTrade{
		Kind:         in.kind,
		Quantity:     qty,
		Price:        in.fill.AvgPrice,
		SellNotional: sellNotional,
		BuyNotional:  pos.ApportionedBuyNotional(qty),
		ExecutedAt:   c.now(),
	})

	pos.RemainingQuantity = pos.RemainingQuantity.Sub(qty)
	if pos.RemainingQuantity.IsPositive() && in.kind == model.SubTradeTimedExit {
		// Should not happen; the timer sells all remaining quantity.
		pos.Status = model.PositionStatusPartiallyClosed
		return
	}

	pos.RemainingQuantity = decimal.Zero
	c.closePosition(pos)
}

type claimExitIntent struct {
	symbol string
	reply  chan bool
}

func (in claimExitIntent) apply(c *Coordinator) {
	_, open := c.positions[in.symbol]
	if !open || c.claimed[in.symbol] {
		in.reply <- false
		return
	}
	c.claimed[in.symbol] = true
	in.reply <- true
}

type releaseExitIntent struct {
	symbol string
}

func (in releaseExitIntent) apply(c *Coordinator) {
	delete(c.claimed, in.symbol)
}

type snapshotIntent struct {
	reply chan []model.Position
}

func (in snapshotIntent) apply(c *Coordinator) {
	out := make([]model.Position, 0, len(c.positions))
	for _, pos := range c.positions {
		if c.claimed[pos.Symbol] {
			continue
		}
		out = append(out, *pos)
	}
	in.reply <- out
}

type realizedIntent struct {
	reply chan []model.RealizedTrade
}

func (in realizedIntent) apply(c *Coordinator) {
	out := make([]model.RealizedTrade, len(c.realized))
	copy(out, c.realized)
	in.reply <- out
}

func (c *Coordinator) closePosition(pos *model.Position) {
	pos.Status = model.PositionStatusClosed
	trade := model.NewRealizedTrade(pos, c.now())

	delete(c.positions, pos.Symbol)
	delete(c.claimed, pos.Symbol)
	c.realized = append(c.realized, trade)

	c.log.WithFields(logrus.Fields{
		"symbol":     trade.Symbol,
		"profit_pct": trade.ProfitPct,
		"sub_trades": len(trade.SubTrades),
	}).Info("Position closed")

	if c.onClosed != nil {
		c.onClosed(trade)
	}
}

// ----- public API -----

// Track registers a freshly entered position with the book.
func (c *Coordinator) Track(pos *model.Position) {
	c.submit(trackIntent{position: pos})
}

// MarkLimitFilled records a filled take-profit slice.
func (c *Coordinator) MarkLimitFilled(symbol string, qty, price decimal.Decimal) {
	c.submit(limitFilledIntent{symbol: symbol, qty: qty, price: price})
}

// RecordExit records a stop-loss or timed-exit market sell.
func (c *Coordinator) RecordExit(symbol, kind string, fill model.OrderFill) {
	c.submit(exitIntent{symbol: symbol, kind: kind, fill: fill})
}

// ClaimExit reserves a position for liquidation so the stop-loss monitor and
// the exit timer cannot both market-sell the same remainder.
func (c *Coordinator) ClaimExit(symbol string) bool {
	reply := make(chan bool, 1)
	c.submit(claimExitIntent{symbol: symbol, reply: reply})

	select {
	case granted := <-reply:
		return granted
	case <-c.done:
		// The shutdown drain may have answered already.
		select {
		case granted := <-reply:
			return granted
		default:
			return false
		}
	}
}

// ReleaseExit returns a claimed position to monitoring after a failed
// liquidation attempt.
func (c *Coordinator) ReleaseExit(symbol string) {
	c.submit(releaseExitIntent{symbol: symbol})
}

// OpenPositions returns copies of every unclaimed open position.
func (c *Coordinator) OpenPositions() []model.Position {
	reply := make(chan []model.Position, 1)
	c.submit(snapshotIntent{reply: reply})

	select {
	case positions := <-reply:
		return positions
	case <-c.done:
		select {
		case positions := <-reply:
			return positions
		default:
			return nil
		}
	}
}

// Realized returns the session's closed trades so far.
func (c *Coordinator) Realized() []model.RealizedTrade {
	reply := make(chan []model.RealizedTrade, 1)
	c.submit(realizedIntent{reply: reply})

	select {
	case trades := <-reply:
		return trades
	case <-c.done:
		select {
		case trades := <-reply:
			return trades
		default:
			return nil
		}
	}
}
