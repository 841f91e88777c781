package models

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&Role{},
		&User{},
		&Category{},
		&Tag{},
		&Media{},
		&Post{},
		&PostTag{},
		&Comment{},
		&Bookmark{},
		&SiteSetting{},
		&NewsletterSubscriber{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// SeedRoles inserts the default role catalogue. Existing roles are left
// untouched so edited permission sets survive a re-run.
func SeedRoles(db *gorm.DB) error {
	roles := DefaultRoles()
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&roles).Error
	if err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	return nil
}
