package database

import (
	"context"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rpupo63/blog-cms-backend/models"
)

type SettingRepo struct {
	db *gorm.DB
}

func NewSettingRepo(db *gorm.DB) *SettingRepo {
	return &SettingRepo{db}
}

// All returns the full settings mapping.
func (r *SettingRepo) All(ctx context.Context) (map[string]models.SettingValue, error) {
	var rows []models.SiteSetting
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	settings := make(map[string]models.SettingValue, len(rows))
	for _, row := range rows {
		settings[row.Key] = models.SettingValue{Value: row.Value, Enabled: row.Enabled}
	}
	return settings, nil
}

// Save upserts every entry of settings in one transaction. Keys not present
// in settings are left as they are.
func (r *SettingRepo) Save(ctx context.Context, settings map[string]models.SettingValue) error {
	if len(settings) == 0 {
		return nil
	}
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]models.SiteSetting, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, models.SiteSetting{Key: k, Value: settings[k].Value, Enabled: settings[k].Enabled})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "enabled", "updated_at"}),
		}).Create(&rows).Error
	})
	return txError("save settings", err)
}
