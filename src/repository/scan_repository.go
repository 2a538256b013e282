package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pumpscanner/src/database"
	"pumpscanner/src/model"
)

// ScanRepository persists pipeline runs: one verdict row per instrument per
// stage, grouped by run id.
type ScanRepository struct {
	db *gorm.DB
}

// NewScanRepository creates a repository bound to the main database.
func NewScanRepository() *ScanRepository {
	return &ScanRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *ScanRepository) WithDB(db *gorm.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// SaveRun stores a full audit trail in one transaction so a run is either
// completely persisted or not at all.
func (r *ScanRepository) SaveRun(ctx context.Context, runID string, verdicts []model.FilterVerdict) error {
	logger.WithFields(map[string]interface{}{
		"repo":     "ScanRepository",
		"op":       "SaveRun",
		"run_id":   runID,
		"verdicts": len(verdicts),
	}).Debug("Persisting scan run")

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, v := range verdicts {
			record := model.NewScanVerdictRecord(runID, v)
			if err := tx.Create(&record).Error; err != nil {
				logger.WithFields(map[string]interface{}{
					"repo":   "ScanRepository",
					"op":     "SaveRun",
					"run_id": runID,
					"symbol": v.Symbol,
				}).WithError(err).Error("Failed to persist scan verdict")
				return err
			}
		}
		return nil
	})
}

// FindByRunID returns every verdict row of one run in insertion order.
func (r *ScanRepository) FindByRunID(ctx context.Context, runID string) ([]model.ScanVerdictRecord, error) {
	var records []model.ScanVerdictRecord

	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(&records).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "ScanRepository",
			"op":     "FindByRunID",
			"run_id": runID,
		}).WithError(err).Error("Failed to fetch scan run")
		return nil, err
	}

	return records, nil
}

// FindLatest returns the newest verdict rows across runs.
func (r *ScanRepository) FindLatest(ctx context.Context, limit int) ([]model.ScanVerdictRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	var records []model.ScanVerdictRecord

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "ScanRepository",
			"op":    "FindLatest",
			"limit": limit,
		}).WithError(err).Error("Failed to fetch latest scan verdicts")
		return nil, err
	}

	return records, nil
}
