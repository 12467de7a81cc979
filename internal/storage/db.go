package storage

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens the postgres database at dsn and performs migrations.
func New(dsn string) (*gorm.DB, error) {
	return Open(postgres.Open(dsn))
}

// Open connects through any gorm dialector and performs migrations.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Game{}, &Player{}, &Move{}); err != nil {
		return nil, err
	}
	return db, nil
}
