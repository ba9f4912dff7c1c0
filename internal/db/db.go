package db

import (
	"github.com/subtracklabs/subtrack/internal/config"
	recorddomain "github.com/subtracklabs/subtrack/internal/record/domain"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func New(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	log.Info("connected to database")
	return gdb, nil
}

// Migrate creates or updates the schema for every persisted model.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&recorddomain.Record{},
		&recorddomain.EventLog{},
	)
}
