package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ScanVerdictRecord is the persisted form of one FilterVerdict, one row per
// instrument per stage, grouped by the run's id.
type ScanVerdictRecord struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	RunID           string          `gorm:"size:40;index" json:"run_id"`
	Symbol          string          `gorm:"size:30;index" json:"symbol"`
	Stage           string          `gorm:"size:30" json:"stage"`
	Passed          bool            `json:"passed"`
	FailReasons     string          `gorm:"size:200" json:"fail_reasons,omitempty"`
	LastPrice       decimal.Decimal `gorm:"type:numeric" json:"last_price"`
	Turnover24h     decimal.Decimal `gorm:"type:numeric" json:"turnover_24h"`
	PriceChangePct  decimal.Decimal `gorm:"type:numeric" json:"price_change_pct"`
	VolumeChangePct decimal.Decimal `gorm:"type:numeric" json:"volume_change_pct"`
	SpreadPct       decimal.Decimal `gorm:"type:numeric" json:"spread_pct"`
	PriceDiffPct    decimal.Decimal `gorm:"type:numeric" json:"price_diff_pct"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (ScanVerdictRecord) TableName() string {
	return "scan_verdicts"
}

// NewScanVerdictRecord flattens a verdict for storage. Reasons join with "|"
// so a single varchar column survives the round trip.
func NewScanVerdictRecord(runID string, v FilterVerdict) ScanVerdictRecord {
	reasons := make([]string, 0, len(v.FailReasons))
	for _, r := range v.FailReasons {
		reasons = append(reasons, string(r))
	}

	rec := ScanVerdictRecord{
		RunID:           runID,
		Symbol:          v.Symbol,
		Stage:           string(v.Stage),
		Passed:          v.Passed,
		FailReasons:     strings.Join(reasons, "|"),
		LastPrice:       v.Metrics.LastPrice,
		Turnover24h:     v.Metrics.Turnover24h,
		PriceChangePct:  v.Metrics.PriceChangePct,
		VolumeChangePct: v.Metrics.VolumeChangePct,
		SpreadPct:       v.Metrics.SpreadPct,
		CreatedAt:       v.CreatedAt,
	}

	if v.Metrics.Fill != nil {
		rec.PriceDiffPct = v.Metrics.Fill.PriceDiffPct
	}

	return rec
}

// ParsedFailReasons reverses the "|" join.
func (r ScanVerdictRecord) ParsedFailReasons() []FailReason {
	if r.FailReasons == "" {
		return nil
	}

	parts := strings.Split(r.FailReasons, "|")
	reasons := make([]FailReason, 0, len(parts))
	for _, p := range parts {
		reasons = append(reasons, FailReason(p))
	}
	return reasons
}

// RealizedTradeRecord is the persisted aggregate for one closed position,
// with the three sell paths broken out into optional notional columns.
type RealizedTradeRecord struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Symbol            string          `gorm:"size:30;index" json:"symbol"`
	EntryPrice        decimal.Decimal `gorm:"type:numeric" json:"entry_price"`
	TotalBuyNotional  decimal.Decimal `gorm:"type:numeric" json:"total_buy_notional"`
	TotalSellNotional decimal.Decimal `gorm:"type:numeric" json:"total_sell_notional"`
	ProfitAmount      decimal.Decimal `gorm:"type:numeric" json:"profit_amount"`
	ProfitPct         decimal.Decimal `gorm:"type:numeric" json:"profit_pct"`
	LimitSellNotional decimal.Decimal `gorm:"type:numeric" json:"limit_sell_notional"`
	StopLossNotional  decimal.Decimal `gorm:"type:numeric" json:"stop_loss_notional"`
	TimedExitNotional decimal.Decimal `gorm:"type:numeric" json:"timed_exit_notional"`
	ClosedAt          time.Time       `json:"closed_at"`
	CreatedAt         time.Time       `json:"created_at"`
}

func (RealizedTradeRecord) TableName() string {
	return "realized_trades"
}

func NewRealizedTradeRecord(t RealizedTrade) RealizedTradeRecord {
	rec := RealizedTradeRecord{
		Symbol:            t.Symbol,
		EntryPrice:        t.EntryPrice,
		TotalBuyNotional:  t.TotalBuyNotional,
		TotalSellNotional: t.TotalSellNotional,
		ProfitAmount:      t.ProfitAmount,
		ProfitPct:         t.ProfitPct,
		ClosedAt:          t.ClosedAt,
	}

	for _, sub := range t.SubTrades {
		switch sub.Kind {
		case SubTradeLimitSell:
			rec.LimitSellNotional = rec.LimitSellNotional.Add(sub.SellNotional)
		case SubTradeStopLoss:
			rec.StopLossNotional = rec.StopLossNotional.Add(sub.SellNotional)
		case SubTradeTimedExit:
			rec.TimedExitNotional = rec.TimedExitNotional.Add(sub.SellNotional)
		}
	}

	return rec
}

// ScanSettings persists the operator's active configuration between runs.
// Exchange credentials are stored sealed, never in the clear.
type ScanSettings struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:60;uniqueIndex" json:"name"`
	Payload         string    `gorm:"type:text" json:"payload"`
	SealedAccessKey string    `gorm:"size:200" json:"-"`
	SealedSecretKey string    `gorm:"size:200" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (ScanSettings) TableName() string {
	return "scan_settings"
}
