package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pumpscanner/src/database"
	"pumpscanner/src/model"
)

// SettingsRepository stores the operator's scan settings between runs.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *SettingsRepository) WithDB(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Find fetches one named settings row. Returns (nil, nil) when no row with
// that name exists; env defaults apply in that case.
func (r *SettingsRepository) Find(ctx context.Context, name string) (*model.ScanSettings, error) {
	var settings model.ScanSettings

	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&settings).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo": "SettingsRepository",
				"op":   "Find",
				"name": name,
			}).Info("No persisted settings found")
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "SettingsRepository",
			"op":   "Find",
			"name": name,
		}).WithError(err).Error("Failed to fetch settings")
		return nil, err
	}

	return &settings, nil
}

// Save upserts the settings row keyed by name.
func (r *SettingsRepository) Save(ctx context.Context, settings *model.ScanSettings) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "sealed_access_key", "sealed_secret_key", "updated_at"}),
	}).Create(settings).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "SettingsRepository",
			"op":   "Save",
			"name": settings.Name,
		}).WithError(err).Error("Failed to persist settings")
		return err
	}

	return nil
}
