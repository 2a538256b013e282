package executors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	SettingsName   string `envconfig:"SETTINGS_NAME" default:"default"`
	TargetHour     int    `envconfig:"TARGET_HOUR" default:"9"`
	TargetMinute   int    `envconfig:"TARGET_MINUTE" default:"0"`
	RunImmediately bool   `envconfig:"RUN_IMMEDIATELY" default:"false"`

	ExcludeSymbols  string  `envconfig:"EXCLUDE_SYMBOLS" default:""`
	MinTurnover     float64 `envconfig:"MIN_TURNOVER" default:"1000000000"`
	MaxTurnover     float64 `envconfig:"MAX_TURNOVER" default:"0"`
	PriceChangeMin  float64 `envconfig:"PRICE_CHANGE_MIN" default:"0.3"`
	PriceChangeMax  float64 `envconfig:"PRICE_CHANGE_MAX" default:"3"`
	VolumeChangeMin float64 `envconfig:"VOLUME_CHANGE_MIN" default:"300"`
	MaxSpreadPct    float64 `envconfig:"MAX_SPREAD_PCT" default:"0.5"`
	MaxSlippagePct  float64 `envconfig:"MAX_SLIPPAGE_PCT" default:"0.3"`
	ProbeNotional   float64 `envconfig:"PROBE_NOTIONAL" default:"10000000"`

	DayCandleEnabled bool    `envconfig:"DAY_CANDLE_ENABLED" default:"true"`
	DayCandleCount   int     `envconfig:"DAY_CANDLE_COUNT" default:"10"`
	MinBullishRatio  float64 `envconfig:"MIN_BULLISH_RATIO" default:"0.4"`

	BatchSize  int           `envconfig:"BATCH_SIZE" default:"100"`
	BatchDelay time.Duration `envconfig:"BATCH_DELAY" default:"100ms"`
	FetchDelay time.Duration `envconfig:"FETCH_DELAY" default:"80ms"`

	AutoTrade        bool          `envconfig:"AUTO_TRADE" default:"false"`
	MaxCoins         int           `envconfig:"MAX_COINS" default:"3"`
	InvestmentRatio  float64       `envconfig:"INVESTMENT_RATIO" default:"100"`
	MinOrderNotional float64       `envconfig:"MIN_ORDER_NOTIONAL" default:"5000"`
	SellPercentage   float64       `envconfig:"SELL_PERCENTAGE" default:"3"`
	SellRatio        string        `envconfig:"SELL_RATIO" default:"half"`
	StopLossPct      float64       `envconfig:"STOP_LOSS_PCT" default:"5"`
	ExitHorizon      int           `envconfig:"EXIT_HORIZON" default:"24"`
	EntryPacing      time.Duration `envconfig:"ENTRY_PACING" default:"500ms"`

	ReportDir       string `envconfig:"REPORT_DIR" default:"reports"`
	PersistSettings bool   `envconfig:"PERSIST_SETTINGS" default:"true"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
