package trader

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"pumpscanner/src/connectors"
	"pumpscanner/src/model"
	"pumpscanner/src/utils"
)

// ExitTimer force-closes whatever is still open when the session horizon
// expires. It runs once per entry batch, independent of the per-position
// monitor.
type ExitTimer struct {
	exchange Exchange
	coord    *Coordinator
	log      *logrus.Entry
}

func NewExitTimer(exchange Exchange, coord *Coordinator, log *logrus.Entry) *ExitTimer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ExitTimer{exchange: exchange, coord: coord, log: log}
}

// Run waits for the deadline and then liquidates every open position that
// the stop-loss has not already claimed. Returns early on cancellation.
func (t *ExitTimer) Run(ctx context.Context, deadline time.Time) {
	t.log.WithField("deadline", deadline).Info("Forced exit scheduled")

	if err := utils.SleepUntil(ctx, deadline); err != nil {
		t.log.Info("Forced exit timer canceled")
		return
	}

	positions := t.coord.OpenPositions()
	t.log.WithField("positions", len(positions)).Info("Forced exit firing")

	for _, pos := range positions {
		t.forceExit(pos)
	}
}

func (t *ExitTimer) forceExit(pos model.Position) {
	if !t.coord.ClaimExit(pos.Symbol) {
		return
	}

	if pos.LimitSellOrderID != "" && pos.LimitSellFilledQty.LessThan(pos.LimitSellTargetQty) {
		if err := t.exchange.CancelOrder(pos.LimitSellOrderID); err != nil {
			t.log.WithField("symbol", pos.Symbol).WithError(err).
				Warn("Failed to cancel limit order before forced exit")
		}

		// The order may have partially filled before the cancel; sell only
		// what the account actually still holds.
		filled := reconcileCancelledOrder(t.exchange, t.coord, t.log, &pos)
		pos.LimitSellFilledQty = pos.LimitSellFilledQty.Add(filled)
	}

	remaining := pos.EntryQuantity.Sub(pos.LimitSellFilledQty)
	if !remaining.IsPositive() {
		t.coord.ReleaseExit(pos.Symbol)
		return
	}

	fill, err := t.exchange.SellMarket(pos.Symbol, remaining, pos.EntryPrice)
	if err != nil {
		t.log.WithFields(logrus.Fields{
			"symbol":     pos.Symbol,
			"error_code": connectors.Classify(err),
		}).WithError(err).Error("Forced exit market sell failed")
		t.coord.ReleaseExit(pos.Symbol)
		return
	}

	t.coord.RecordExit(pos.Symbol, model.SubTradeTimedExit, fill)
}
