package model

import (
	"github.com/shopspring/decimal"
)

const (
	OrderStateWait     = "wait"
	OrderStateDone     = "done"
	OrderStateCanceled = "cancel"
)

// OrderFill is the settled outcome of a market order: what actually filled
// and at what weighted price.
type OrderFill struct {
	OrderID  string          `json:"order_id"`
	Symbol   string          `json:"symbol"`
	Volume   decimal.Decimal `json:"volume"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	Notional decimal.Decimal `json:"notional"`
}

// OrderStatus is a point-in-time view of a resting order.
type OrderStatus struct {
	OrderID      string          `json:"order_id"`
	Symbol       string          `json:"symbol"`
	State        string          `json:"state"`
	FilledVolume decimal.Decimal `json:"filled_volume"`
	AvgFillPrice decimal.Decimal `json:"avg_fill_price"`
}
