package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pumpscanner/src/database"
	"pumpscanner/src/model"
)

// TradeRepository persists realized trades, one row per closed position.
type TradeRepository struct {
	db *gorm.DB
}

func NewTradeRepository() *TradeRepository {
	return &TradeRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

func (r *TradeRepository) Create(ctx context.Context, trade model.RealizedTrade) error {
	record := model.NewRealizedTradeRecord(trade)

	err := r.db.WithContext(ctx).Create(&record).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "TradeRepository",
			"op":     "Create",
			"symbol": trade.Symbol,
		}).WithError(err).Error("Failed to persist realized trade")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":       "TradeRepository",
		"op":         "Create",
		"symbol":     trade.Symbol,
		"profit_pct": trade.ProfitPct,
	}).Info("Realized trade persisted")

	return nil
}

// FindLatest returns the newest realized trades first.
func (r *TradeRepository) FindLatest(ctx context.Context, limit int) ([]model.RealizedTradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []model.RealizedTradeRecord

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "TradeRepository",
			"op":    "FindLatest",
			"limit": limit,
		}).WithError(err).Error("Failed to fetch latest realized trades")
		return nil, err
	}

	return records, nil
}

// FindBySymbol returns every realized trade of one instrument, newest first.
func (r *TradeRepository) FindBySymbol(ctx context.Context, symbol string) ([]model.RealizedTradeRecord, error) {
	var records []model.RealizedTradeRecord

	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("id DESC").
		Find(&records).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "TradeRepository",
			"op":     "FindBySymbol",
			"symbol": symbol,
		}).WithError(err).Error("Failed to fetch realized trades by symbol")
		return nil, err
	}

	return records, nil
}
