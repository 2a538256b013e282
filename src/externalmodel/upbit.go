// Wire shapes for the Upbit public/private REST API. Field names follow the
// exchange's JSON verbatim; mapping into domain types lives in src/mapper.
package externalmodel

import (
	"github.com/shopspring/decimal"
)

type UpbitMarket struct {
	Market      string `json:"market"`
	KoreanName  string `json:"korean_name"`
	EnglishName string `json:"english_name"`
}

type UpbitTicker struct {
	Market            string          `json:"market"`
	TradePrice        decimal.Decimal `json:"trade_price"`
	AccTradePrice24h  decimal.Decimal `json:"acc_trade_price_24h"`
	AccTradeVolume24h decimal.Decimal `json:"acc_trade_volume_24h"`
	SignedChangeRate  decimal.Decimal `json:"signed_change_rate"`
	Timestamp         int64           `json:"timestamp"`
}

type UpbitOrderbookUnit struct {
	AskPrice decimal.Decimal `json:"ask_price"`
	BidPrice decimal.Decimal `json:"bid_price"`
	AskSize  decimal.Decimal `json:"ask_size"`
	BidSize  decimal.Decimal `json:"bid_size"`
}

type UpbitOrderbook struct {
	Market         string               `json:"market"`
	Timestamp      int64                `json:"timestamp"`
	OrderbookUnits []UpbitOrderbookUnit `json:"orderbook_units"`
}

type UpbitCandle struct {
	Market               string          `json:"market"`
	CandleDateTimeUTC    string          `json:"candle_date_time_utc"`
	CandleDateTimeKST    string          `json:"candle_date_time_kst"`
	OpeningPrice         decimal.Decimal `json:"opening_price"`
	HighPrice            decimal.Decimal `json:"high_price"`
	LowPrice             decimal.Decimal `json:"low_price"`
	TradePrice           decimal.Decimal `json:"trade_price"`
	CandleAccTradePrice  decimal.Decimal `json:"candle_acc_trade_price"`
	CandleAccTradeVolume decimal.Decimal `json:"candle_acc_trade_volume"`
	Timestamp            int64           `json:"timestamp"`
}

type UpbitAccount struct {
	Currency     string          `json:"currency"`
	Balance      decimal.Decimal `json:"balance"`
	Locked       decimal.Decimal `json:"locked"`
	AvgBuyPrice  decimal.Decimal `json:"avg_buy_price"`
	UnitCurrency string          `json:"unit_currency"`
}

type UpbitTrade struct {
	Market string          `json:"market"`
	UUID   string          `json:"uuid"`
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
	Funds  decimal.Decimal `json:"funds"`
	Side   string          `json:"side"`
}

const (
	UpbitOrderStateWait   = "wait"
	UpbitOrderStateDone   = "done"
	UpbitOrderStateCancel = "cancel"
)

type UpbitOrder struct {
	UUID            string          `json:"uuid"`
	Side            string          `json:"side"`
	OrdType         string          `json:"ord_type"`
	Price           decimal.Decimal `json:"price"`
	State           string          `json:"state"`
	Market          string          `json:"market"`
	Volume          decimal.Decimal `json:"volume"`
	RemainingVolume decimal.Decimal `json:"remaining_volume"`
	ExecutedVolume  decimal.Decimal `json:"executed_volume"`
	PaidFee         decimal.Decimal `json:"paid_fee"`
	Locked          decimal.Decimal `json:"locked"`
	TradesCount     int             `json:"trades_count"`
	Trades          []UpbitTrade    `json:"trades"`
}

// UpbitAPIError is the exchange's uniform error envelope.
type UpbitAPIError struct {
	Error struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}
