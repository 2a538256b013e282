package trader

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"pumpscanner/src/connectors"
	"pumpscanner/src/model"
)

const defaultMonitorInterval = 5 * time.Second

// Monitor polls the open positions on a fixed interval, detecting filled
// take-profit orders and firing the stop-loss. Fixed polling is deliberate;
// there is no push feed in this design.
type Monitor struct {
	exchange Exchange
	coord    *Coordinator
	log      *logrus.Entry
	interval time.Duration
}

func NewMonitor(exchange Exchange, coord *Coordinator, log *logrus.Entry) *Monitor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Monitor{
		exchange: exchange,
		coord:    coord,
		log:      log,
		interval: defaultMonitorInterval,
	}
}

func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("Position monitor stopped")
			return
		case <-ticker.C:
			m.cycle()
		}
	}
}

func (m *Monitor) cycle() {
	positions := m.coord.OpenPositions()
	if len(positions) == 0 {
		return
	}

	symbols := make([]string, 0, len(positions))
	for _, pos := range positions {
		symbols = append(symbols, pos.Symbol)
	}

	prices, err := m.exchange.LastPrices(symbols)
	if err != nil {
		m.log.WithError(err).WithField("error_code", connectors.Classify(err)).
			Error("Failed to fetch prices for monitoring cycle")
		return
	}

	for _, pos := range positions {
		if filled := m.checkLimitFill(pos); filled.IsPositive() {
			// Keep the local copy in step with what was just recorded, so a
			// stop-loss in the same cycle sells the true remainder.
			pos.LimitSellFilledQty = pos.LimitSellFilledQty.Add(filled)
			pos.RemainingQuantity = pos.RemainingQuantity.Sub(filled)
			if !pos.RemainingQuantity.IsPositive() {
				continue
			}
		}

		current, ok := prices[pos.Symbol]
		if !ok || current.IsZero() {
			continue
		}

		if pos.DrawdownPct(current).GreaterThanOrEqual(pos.StopLossPct) {
			m.log.WithFields(logrus.Fields{
				"symbol":        pos.Symbol,
				"entry_price":   pos.EntryPrice,
				"current_price": current,
				"stop_loss_pct": pos.StopLossPct,
			}).Warn("Stop loss triggered")
			m.liquidate(pos, current)
		}
	}
}

// checkLimitFill transitions the position when its resting take-profit order
// reports terminal state, and returns the newly recorded fill volume. A
// cancelled order with executed volume counts too; the slice that filled
// before the cancel is as sold as any other. The recorded price is the
// order's weighted fill price, not the quoted limit price, unless no detail
// came back.
func (m *Monitor) checkLimitFill(pos model.Position) decimal.Decimal {
	if pos.LimitSellOrderID == "" {
		return decimal.Zero
	}
	if pos.LimitSellFilledQty.GreaterThanOrEqual(pos.LimitSellTargetQty) {
		return decimal.Zero
	}

	status, err := m.exchange.OrderStatus(pos.LimitSellOrderID)
	if err != nil {
		m.log.WithField("symbol", pos.Symbol).WithError(err).
			Warn("Failed to read limit order status")
		return decimal.Zero
	}

	if status.State == model.OrderStateWait {
		return decimal.Zero
	}

	qty := status.FilledVolume
	if qty.IsZero() && status.State == model.OrderStateDone {
		qty = pos.LimitSellTargetQty
	}

	qty = qty.Sub(pos.LimitSellFilledQty)
	if !qty.IsPositive() {
		return decimal.Zero
	}

	price := status.AvgFillPrice
	if price.IsZero() {
		price = pos.LimitSellPrice
	}

	m.coord.MarkLimitFilled(pos.Symbol, qty, price)
	return qty
}

// liquidate cancels the resting order and market-sells everything left. The
// claim keeps the exit timer from selling the same remainder. The order is
// re-read after cancellation: any slice that filled before the cancel must
// come off the remainder, or the market sell exceeds the live balance.
func (m *Monitor) liquidate(pos model.Position, current decimal.Decimal) {
	if !m.coord.ClaimExit(pos.Symbol) {
		return
	}

	if pos.LimitSellOrderID != "" {
		if err := m.exchange.CancelOrder(pos.LimitSellOrderID); err != nil {
			// The order may have just filled; the next cycle reconciles.
			m.log.WithField("symbol", pos.Symbol).WithError(err).
				Warn("Failed to cancel limit order before stop loss")
		}

		filled := reconcileCancelledOrder(m.exchange, m.coord, m.log, &pos)
		pos.RemainingQuantity = pos.RemainingQuantity.Sub(filled)
	}

	if !pos.RemainingQuantity.IsPositive() {
		m.coord.ReleaseExit(pos.Symbol)
		return
	}

	fill, err := m.exchange.SellMarket(pos.Symbol, pos.RemainingQuantity, current)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"symbol":     pos.Symbol,
			"error_code": connectors.Classify(err),
		}).WithError(err).Error("Stop-loss market sell failed")
		m.coord.ReleaseExit(pos.Symbol)
		return
	}

	m.coord.RecordExit(pos.Symbol, model.SubTradeStopLoss, fill)
}

// reconcileCancelledOrder re-reads a just-cancelled limit order and records
// whatever executed before the cancel went through. Returns the newly
// discovered filled volume so the caller can shrink its remainder.
func reconcileCancelledOrder(exchange Exchange, coord *Coordinator, log *logrus.Entry, pos *model.Position) decimal.Decimal {
	status, err := exchange.OrderStatus(pos.LimitSellOrderID)
	if err != nil {
		log.WithField("symbol", pos.Symbol).WithError(err).
			Warn("Failed to re-read cancelled limit order")
		return decimal.Zero
	}

	filled := status.FilledVolume.Sub(pos.LimitSellFilledQty)
	if !filled.IsPositive() {
		return decimal.Zero
	}

	price := status.AvgFillPrice
	if price.IsZero() {
		price = pos.LimitSellPrice
	}

	log.WithFields(logrus.Fields{
		"symbol": pos.Symbol,
		"filled": filled,
		"state":  status.State,
	}).Info("Cancelled limit order had executed volume, recording it")

	coord.MarkLimitFilled(pos.Symbol, filled, price)
	return filled
}
