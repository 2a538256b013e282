package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pumpscanner/src/database"
	"pumpscanner/src/model"
)

// DayCandleRepository stores backfilled daily candles for offline
// cross-checks of the day-candle screen.
type DayCandleRepository struct {
	db *gorm.DB
}

func NewDayCandleRepository() *DayCandleRepository {
	return &DayCandleRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *DayCandleRepository) WithDB(db *gorm.DB) *DayCandleRepository {
	return &DayCandleRepository{db: db}
}

// Upsert inserts a candle or refreshes the row for its (symbol, datetime)
// bucket.
func (r *DayCandleRepository) Upsert(ctx context.Context, candle *model.OHLCVDay) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "datetime"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
	}).Create(candle).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "DayCandleRepository",
			"op":     "Upsert",
			"symbol": candle.Symbol,
		}).WithError(err).Error("Failed to upsert day candle")
		return err
	}

	return nil
}

// FindRecent returns the newest `count` daily candles of one symbol, newest
// first.
func (r *DayCandleRepository) FindRecent(ctx context.Context, symbol string, count int) ([]model.OHLCVDay, error) {
	if count <= 0 {
		count = 10
	}

	var candles []model.OHLCVDay

	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("datetime DESC").
		Limit(count).
		Find(&candles).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "DayCandleRepository",
			"op":     "FindRecent",
			"symbol": symbol,
		}).WithError(err).Error("Failed to fetch recent day candles")
		return nil, err
	}

	return candles, nil
}
