// Daily candle backfill. Pulls day klines from Binance and upserts them into
// the ohlcv_day table so the bullish-ratio screen can be cross-checked
// offline against a longer history.
package backfill

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"

	"pumpscanner/src/model"
	"pumpscanner/src/repository"
)

type Backfill struct {
	Log      *logger.Entry
	DB       *gorm.DB
	Config   *Config
	exchange goex.API
}

func (b *Backfill) Start() error {
	b.Config = GetConfig()

	b.exchange = b.newBinanceInstance()

	rep := repository.NewDayCandleRepository().WithDB(b.DB)

	for _, symbol := range strings.Split(b.Config.Symbols, ",") {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			continue
		}

		if err := b.backfillSymbol(context.Background(), rep, symbol); err != nil {
			return err
		}
	}

	return nil
}

func (*Backfill) newBinanceInstance() *binance.Binance {
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}
	return binance.NewWithConfig(apiConfig)
}

func (b *Backfill) backfillSymbol(ctx context.Context, rep *repository.DayCandleRepository, symbol string) error {
	// KRW-BTC and friends, matching the live scanner's symbol format.
	storeSymbol := fmt.Sprintf("%s-%s", b.Config.Market, symbol)

	startDt := b.Config.StartDt
	if b.Config.AutoMode {
		resumed, err := b.determineStartPoint(storeSymbol)
		if err != nil {
			return err
		}
		startDt = resumed
	}

	klines, err := b.fetchDayKlines(symbol, startDt)
	if err != nil {
		b.Log.WithField("symbol", symbol).WithError(err).Error("Failed to fetch day klines")
		return err
	}

	for i := range klines {
		k := klines[i]

		candle := model.NewOHLCVDay(model.Candle{
			Symbol:   storeSymbol,
			Datetime: time.Unix(k.Timestamp, 0).UTC(),
			Open:     decimal.NewFromFloat(k.Open),
			High:     decimal.NewFromFloat(k.High),
			Low:      decimal.NewFromFloat(k.Low),
			Close:    decimal.NewFromFloat(k.Close),
			Volume:   decimal.NewFromFloat(k.Vol),
		})

		if err := rep.Upsert(ctx, &candle); err != nil {
			return err
		}
	}

	b.Log.WithFields(logger.Fields{
		"symbol":  storeSymbol,
		"candles": len(klines),
	}).Info("Day candles inserted or updated in database")

	return nil
}

// determineStartPoint resumes from one interval before the newest stored
// candle so the still-open day gets refreshed.
func (b *Backfill) determineStartPoint(storeSymbol string) (time.Time, error) {
	startDt := b.Config.StartDt.Add(-24 * time.Hour)

	var latestTime *sql.NullTime
	result := b.DB.Model(&model.OHLCVDay{}).
		Select("MAX(datetime)").
		Where("symbol = ?", storeSymbol).
		Take(&latestTime)

	b.Log.
		WithField("latestTime", latestTime).
		Info("determineStartPoint")

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			b.Log.
				WithError(result.Error).
				WithField("StartDt", startDt.String()).
				Error("no records found, start from the configured StartDt")
		} else {
			b.Log.
				WithError(result.Error).
				Error("Failed to query latest datetime")
			return startDt, result.Error
		}
	}

	if latestTime != nil && latestTime.Valid {
		startDt = latestTime.Time.Add(-24 * time.Hour)
		b.Log.
			WithField("StartDt", startDt.String()).
			Info("determineStartPoint valid date found")
	}

	return startDt, nil
}

func (b *Backfill) fetchDayKlines(symbol string, startDt time.Time) ([]goex.Kline, error) {
	targetSymbol := goex.NewCurrencyPair(
		goex.Currency{Symbol: symbol},
		goex.Currency{Symbol: b.Config.Quote},
	)

	const millis = 1000
	klines, err := b.exchange.GetKlineRecords(
		targetSymbol,
		goex.KLINE_PERIOD_1DAY,
		b.Config.Limit,
		goex.OptionalParameter{}.
			Optional("startTime", startDt.Unix()*millis).
			Optional("endTime", b.Config.EndDt.Unix()*millis),
	)
	if err != nil {
		return nil, err
	}

	return klines, nil
}
