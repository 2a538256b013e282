package executors

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"pumpscanner/src/connectors"
	"pumpscanner/src/model"
	"pumpscanner/src/notifier"
	"pumpscanner/src/pipeline"
	"pumpscanner/src/reports"
	"pumpscanner/src/repository"
	"pumpscanner/src/security"
	"pumpscanner/src/selector"
	"pumpscanner/src/trader"
	"pumpscanner/src/utils"
)

// StartLoop drives one scan session per day. Each iteration waits for the
// configured boundary, runs the filter chain, optionally enters positions
// and babysits them until the exit deadline.
func StartLoop(ctx context.Context) error {
	config := GetConfig()

	settingsRep := repository.NewSettingsRepository()

	config, upbitConfig, err := loadSettings(ctx, settingsRep, config)
	if err != nil {
		logger.WithError(err).Error("Failed to load persisted settings")
		return err
	}

	if config.PersistSettings {
		if err := saveSettings(ctx, settingsRep, config, upbitConfig); err != nil {
			logger.WithError(err).Warn("Failed to persist settings, continuing with env values")
		}
	}

	exchange := connectors.NewUpbitExchange(upbitConfig)

	first := true
	for {
		boundary := utils.NextBoundary(time.Now(), config.TargetHour, config.TargetMinute)
		if first && config.RunImmediately {
			boundary = utils.ResetTime(time.Now().In(utils.MarketLocation()), "minute")
		}
		first = false

		logger.WithField("boundary", boundary).Info("Waiting for scan boundary")
		if err := utils.SleepUntil(ctx, boundary); err != nil {
			logger.Info("loop stopped")
			return nil
		}

		if err := runSession(ctx, config, upbitConfig, exchange, boundary); err != nil {
			if ctx.Err() != nil {
				logger.Info("loop stopped")
				return nil
			}
			logger.WithError(err).Error("Scan session failed, will wait for the next boundary")
		}
	}
}

func runSession(ctx context.Context, config Config, upbitConfig connectors.Config, exchange *connectors.UpbitExchange, boundary time.Time) error {
	log := logger.WithField("boundary", boundary.Format("2006-01-02 15:04"))

	notify := notifier.New()
	notify.SessionStarted(ctx, boundary, settingsEcho(config))

	pipe := pipeline.New(exchange, log)

	result, err := pipe.Run(ctx, boundary, pipelineParams(config))
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	log = log.WithField("run_id", result.RunID)
	log.WithFields(map[string]interface{}{
		"survivors": len(result.Survivors),
		"verdicts":  len(result.Verdicts),
	}).Info("Scan finished")

	scanRep := repository.NewScanRepository()
	if err := scanRep.SaveRun(ctx, result.RunID, result.Verdicts); err != nil {
		log.WithError(err).Warn("Failed to persist scan verdicts")
	}

	if err := os.MkdirAll(config.ReportDir, 0o755); err == nil {
		if path, err := reports.SaveVerdicts(config.ReportDir, boundary, result.Verdicts); err != nil {
			log.WithError(err).Warn("Failed to write scan report")
		} else {
			log.WithField("path", path).Info("Scan report written")
		}
	} else {
		log.WithError(err).Warn("Failed to create report directory")
	}

	balance, err := exchange.AvailableBalance(upbitConfig.QuoteCurrency)
	if err != nil {
		log.WithField("code", connectors.Classify(err)).WithError(err).Error("Failed to fetch balance, skipping trading")
		notify.Survivors(ctx, result.Survivors, nil)
		return nil
	}

	picked, allocations := selector.Select(result.Survivors, balance, selectionConfig(config))
	notify.Survivors(ctx, picked, allocations)

	if !config.AutoTrade || len(picked) == 0 {
		log.WithField("auto_trade", config.AutoTrade).Info("No positions to enter")
		return nil
	}

	return tradeSession(ctx, config, upbitConfig.QuoteCurrency, exchange, log, notify, boundary, picked, allocations)
}

// tradeSession owns the position lifecycle of one boundary: entries, the
// stop-loss monitor and the forced exit at the deadline.
func tradeSession(
	ctx context.Context,
	config Config,
	quoteCurrency string,
	exchange *connectors.UpbitExchange,
	log *logger.Entry,
	notify *notifier.Notifier,
	boundary time.Time,
	picked []model.RankedCandidate,
	allocations []model.Allocation,
) error {
	sellRatio, err := trader.ParseSellRatio(config.SellRatio)
	if err != nil {
		return err
	}

	tradeRep := repository.NewTradeRepository()
	onClosed := func(t model.RealizedTrade) {
		if err := tradeRep.Create(context.Background(), t); err != nil {
			log.WithField("symbol", t.Symbol).WithError(err).Error("Failed to persist realized trade")
		}
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	coord := trader.NewCoordinator(log, onClosed)
	go coord.Run(sessionCtx)

	monitor := trader.NewMonitor(exchange, coord, log)
	go monitor.Run(sessionCtx)

	trd := trader.NewTrader(exchange, coord, trader.Config{
		QuoteCurrency:  quoteCurrency,
		SellPercentage: decimal.NewFromFloat(config.SellPercentage),
		SellRatio:      sellRatio,
		StopLossPct:    decimal.NewFromFloat(config.StopLossPct),
		EntryPacing:    config.EntryPacing,
	}, log)

	exitAt := boundary.Add(utils.ExitHorizon(config.ExitHorizon))

	entered := trd.EnterBatch(ctx, picked, allocations, exitAt)
	log.WithFields(map[string]interface{}{
		"entered": entered,
		"exit_at": exitAt,
	}).Info("Entry batch finished")

	if entered > 0 {
		timer := trader.NewExitTimer(exchange, coord, log)
		timer.Run(ctx, exitAt)
	}

	realized := coord.Realized()
	cancel()

	summary := trader.Summarize(realized)
	log.WithFields(map[string]interface{}{
		"trades":     summary.TradeCount,
		"profit_pct": summary.ProfitPct,
	}).Info("Session closed")

	if len(realized) > 0 {
		if path, err := reports.SaveTrades(config.ReportDir, boundary, realized); err != nil {
			log.WithError(err).Warn("Failed to write trade report")
		} else {
			log.WithField("path", path).Info("Trade report written")
		}
	}

	notify.SessionClosed(ctx, summary)
	return nil
}

func pipelineParams(config Config) pipeline.Params {
	return pipeline.Params{
		Thresholds: pipeline.Thresholds{
			MinTurnover:     decimal.NewFromFloat(config.MinTurnover),
			MaxTurnover:     decimal.NewFromFloat(config.MaxTurnover),
			PriceChangeMin:  decimal.NewFromFloat(config.PriceChangeMin),
			PriceChangeMax:  decimal.NewFromFloat(config.PriceChangeMax),
			VolumeChangeMin: decimal.NewFromFloat(config.VolumeChangeMin),
			MaxSpreadPct:    decimal.NewFromFloat(config.MaxSpreadPct),
			MaxSlippagePct:  decimal.NewFromFloat(config.MaxSlippagePct),
			ProbeNotional:   decimal.NewFromFloat(config.ProbeNotional),
		},
		ExcludeSymbols:   splitSymbols(config.ExcludeSymbols),
		BatchSize:        config.BatchSize,
		BatchDelay:       config.BatchDelay,
		FetchDelay:       config.FetchDelay,
		DayCandleEnabled: config.DayCandleEnabled,
		DayCandleCount:   config.DayCandleCount,
		MinBullishRatio:  decimal.NewFromFloat(config.MinBullishRatio),
	}
}

func selectionConfig(config Config) selector.SelectionConfig {
	return selector.SelectionConfig{
		MaxCoins:           config.MaxCoins,
		InvestmentRatioPct: decimal.NewFromFloat(config.InvestmentRatio),
		MinOrderNotional:   decimal.NewFromFloat(config.MinOrderNotional),
		// The day-candle screen tags instead of rejecting so every verdict
		// stays auditable, but a tagged instrument must never be bought while
		// the screen is on.
		ExcludeDayCandleFails: config.DayCandleEnabled,
	}
}

func splitSymbols(raw string) []string {
	if raw == "" {
		return nil
	}

	var symbols []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			symbols = append(symbols, part)
		}
	}
	return symbols
}

func settingsEcho(config Config) map[string]string {
	return map[string]string{
		"auto_trade":        fmt.Sprintf("%t", config.AutoTrade),
		"min_turnover":      fmt.Sprintf("%.0f", config.MinTurnover),
		"price_change_min":  fmt.Sprintf("%.2f", config.PriceChangeMin),
		"price_change_max":  fmt.Sprintf("%.2f", config.PriceChangeMax),
		"volume_change_min": fmt.Sprintf("%.2f", config.VolumeChangeMin),
		"max_coins":         fmt.Sprintf("%d", config.MaxCoins),
		"investment_ratio":  fmt.Sprintf("%.0f", config.InvestmentRatio),
		"sell_percentage":   fmt.Sprintf("%.2f", config.SellPercentage),
		"sell_ratio":        config.SellRatio,
		"stop_loss_pct":     fmt.Sprintf("%.2f", config.StopLossPct),
		"exit_horizon":      fmt.Sprintf("%d", config.ExitHorizon),
	}
}

// loadSettings overlays the persisted settings row, when one exists, on top
// of the env defaults. Persisted exchange credentials fill in only when the
// env does not provide them.
func loadSettings(ctx context.Context, rep *repository.SettingsRepository, config Config) (Config, connectors.Config, error) {
	upbitConfig := connectors.GetConfig()

	row, err := rep.Find(ctx, config.SettingsName)
	if err != nil {
		return config, upbitConfig, err
	}
	if row == nil {
		return config, upbitConfig, nil
	}

	if row.Payload != "" {
		if err := json.Unmarshal([]byte(row.Payload), &config); err != nil {
			return config, upbitConfig, fmt.Errorf("malformed settings payload %q: %w", config.SettingsName, err)
		}
	}

	if upbitConfig.UpbitAccessKey == "" && row.SealedAccessKey != "" {
		key, err := security.OpenString(row.SealedAccessKey)
		if err != nil {
			return config, upbitConfig, err
		}
		upbitConfig.UpbitAccessKey = key
	}
	if upbitConfig.UpbitSecretKey == "" && row.SealedSecretKey != "" {
		secret, err := security.OpenString(row.SealedSecretKey)
		if err != nil {
			return config, upbitConfig, err
		}
		upbitConfig.UpbitSecretKey = secret
	}

	logger.WithField("name", config.SettingsName).Info("Persisted settings applied")
	return config, upbitConfig, nil
}

func saveSettings(ctx context.Context, rep *repository.SettingsRepository, config Config, upbitConfig connectors.Config) error {
	payload, err := json.Marshal(config)
	if err != nil {
		return err
	}

	row := &model.ScanSettings{
		Name:      config.SettingsName,
		Payload:   string(payload),
		UpdatedAt: time.Now(),
	}

	if upbitConfig.UpbitAccessKey != "" {
		sealed, err := security.SealString(upbitConfig.UpbitAccessKey)
		if err != nil {
			return err
		}
		row.SealedAccessKey = sealed
	}
	if upbitConfig.UpbitSecretKey != "" {
		sealed, err := security.SealString(upbitConfig.UpbitSecretKey)
		if err != nil {
			return err
		}
		row.SealedSecretKey = sealed
	}

	return rep.Save(ctx, row)
}
