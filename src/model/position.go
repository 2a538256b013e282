package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PositionStatusOpen            = "OPEN"
	PositionStatusPartiallyClosed = "PARTIALLY_CLOSED"
	PositionStatusClosed          = "CLOSED"
)

const (
	SubTradeLimitSell = "LIMIT_SELL"
	SubTradeStopLoss  = "STOP_LOSS"
	SubTradeTimedExit = "TIMED_EXIT"
)

// SubTrade is one realized sell slice of a position. BuyNotional is the
// apportioned entry cost for this slice, (Quantity / entry_quantity) * entry
// notional, never the full entry notional on a partial exit.
type SubTrade struct {
	Kind         string          `json:"kind"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	SellNotional decimal.Decimal `json:"sell_notional"`
	BuyNotional  decimal.Decimal `json:"buy_notional"`
	ExecutedAt   time.Time       `json:"executed_at"`
}

// Position tracks one traded instrument from entry fill to full exit. The
// coordinator owns all mutation; everyone else sees copies.
type Position struct {
	Symbol             string          `json:"symbol"`
	EntryPrice         decimal.Decimal `json:"entry_price"`
	EntryQuantity      decimal.Decimal `json:"entry_quantity"`
	EntryNotional      decimal.Decimal `json:"entry_notional"`
	RemainingQuantity  decimal.Decimal `json:"remaining_quantity"`
	LimitSellOrderID   string          `json:"limit_sell_order_id,omitempty"`
	LimitSellPrice     decimal.Decimal `json:"limit_sell_price"`
	LimitSellTargetQty decimal.Decimal `json:"limit_sell_target_qty"`
	LimitSellFilledQty decimal.Decimal `json:"limit_sell_filled_qty"`
	Status             string          `json:"status"`
	StopLossPct        decimal.Decimal `json:"stop_loss_pct"`
	ScheduledExitAt    time.Time       `json:"scheduled_exit_at"`
	OpenedAt           time.Time       `json:"opened_at"`
	SubTrades          []SubTrade      `json:"sub_trades,omitempty"`
}

// DrawdownPct is (entry - current) / entry * 100, positive when under water.
func (p *Position) DrawdownPct(currentPrice decimal.Decimal) decimal.Decimal {
	if p.EntryPrice.IsZero() {
		return decimal.Zero
	}
	return p.EntryPrice.Sub(currentPrice).Div(p.EntryPrice).Mul(decimal.NewFromInt(100))
}

// ApportionedBuyNotional slices the original entry cost for a partial sell.
func (p *Position) ApportionedBuyNotional(soldQty decimal.Decimal) decimal.Decimal {
	if p.EntryQuantity.IsZero() {
		return decimal.Zero
	}
	return soldQty.Div(p.EntryQuantity).Mul(p.EntryNotional)
}

// RealizedTrade merges every sell slice of one closed position.
type RealizedTrade struct {
	Symbol            string          `json:"symbol"`
	EntryPrice        decimal.Decimal `json:"entry_price"`
	TotalBuyNotional  decimal.Decimal `json:"total_buy_notional"`
	TotalSellNotional decimal.Decimal `json:"total_sell_notional"`
	ProfitAmount      decimal.Decimal `json:"profit_amount"`
	ProfitPct         decimal.Decimal `json:"profit_pct"`
	SubTrades         []SubTrade      `json:"sub_trades"`
	ClosedAt          time.Time       `json:"closed_at"`
}

// NewRealizedTrade folds a closed position's sub-trades into the terminal
// record. profit_pct = (total_sell / total_buy - 1) * 100.
func NewRealizedTrade(p *Position, closedAt time.Time) RealizedTrade {
	trade := RealizedTrade{
		Symbol:     p.Symbol,
		EntryPrice: p.EntryPrice,
		SubTrades:  p.SubTrades,
		ClosedAt:   closedAt,
	}

	for _, sub := range p.SubTrades {
		trade.TotalBuyNotional = trade.TotalBuyNotional.Add(sub.BuyNotional)
		trade.TotalSellNotional = trade.TotalSellNotional.Add(sub.SellNotional)
	}

	trade.ProfitAmount = trade.TotalSellNotional.Sub(trade.TotalBuyNotional)
	if !trade.TotalBuyNotional.IsZero() {
		trade.ProfitPct = trade.TotalSellNotional.
			Div(trade.TotalBuyNotional).
			Sub(decimal.NewFromInt(1)).
			Mul(decimal.NewFromInt(100))
	}

	return trade
}
