package model

import (
	"time"

	"pumpscanner/src/utils"

	"github.com/shopspring/decimal"
)

// OHLCVDay is the backfilled daily-candle table used to cross-check the
// day-candle screen offline.
type OHLCVDay struct {
	ID       uint            `gorm:"primaryKey"`
	Symbol   string          `json:"symbol"   gorm:"type:varchar(50);not null;uniqueIndex:ux_ohlcv_day_symbol_datetime,priority:1"`
	Datetime time.Time       `json:"datetime" gorm:"not null;uniqueIndex:ux_ohlcv_day_symbol_datetime,priority:2;index:idx_ohlcv_day_datetime"`
	Open     decimal.Decimal `json:"open"   gorm:"type:double precision;not null"`
	High     decimal.Decimal `json:"high"   gorm:"type:double precision;not null"`
	Low      decimal.Decimal `json:"low"    gorm:"type:double precision;not null"`
	Close    decimal.Decimal `json:"close"  gorm:"type:double precision;not null"`
	Volume   decimal.Decimal `json:"volume" gorm:"type:double precision;not null"`
}

func (OHLCVDay) TableName() string {
	return "ohlcv_day"
}

func (o OHLCVDay) ToCandle() Candle {
	return Candle{
		Datetime: o.Datetime,
		Open:     o.Open,
		High:     o.High,
		Low:      o.Low,
		Close:    o.Close,
		Volume:   o.Volume,
		Symbol:   o.Symbol,
	}
}

// NewOHLCVDay truncates the timestamp to the day bucket before storage.
func NewOHLCVDay(c Candle) OHLCVDay {
	return OHLCVDay{
		Symbol:   c.Symbol,
		Datetime: utils.ResetTime(c.Datetime, "day"),
		Open:     c.Open,
		High:     c.High,
		Low:      c.Low,
		Close:    c.Close,
		Volume:   c.Volume,
	}
}
