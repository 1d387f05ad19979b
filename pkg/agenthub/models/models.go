package models

import "gorm.io/gorm"

// AllModels returns all models for migration
// Note: User and Group must be migrated before the join tables that reference them
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Group{},
		&Agent{},
		&GroupMembership{},
		&GroupAgent{},
	}
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
