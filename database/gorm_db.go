package database

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/camden-git/galacticcensus/logger"
	"github.com/camden-git/galacticcensus/models"
)

// InitGormDB initializes and returns a GORM database instance
func InitGormDB(dataSourceName string, log *zap.Logger, level gormlogger.LogLevel, opts ...logger.GormOption) (*gorm.DB, error) {
	dsn := withForeignKeys(dataSourceName)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.NewGormLogger(log, level, opts...),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database using GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}

	if isMemoryDSN(dataSourceName) {
		// an in-memory database lives as long as its connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)

		// enable write-ahead Logging for better concurrency
		if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			log.Warn("failed to set WAL mode", zap.Error(err))
		}
	}

	log.Info("GORM database initialized", zap.String("dsn", dataSourceName))
	return db, nil
}

// AutoMigrateModels creates or updates the schema for every model, registering
// the explicit join models before the people table is migrated.
func AutoMigrateModels(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Person{}, "Locations", &models.LocationPerson{}); err != nil {
		return fmt.Errorf("failed to set up locations join table: %w", err)
	}
	if err := db.SetupJoinTable(&models.Person{}, "Affiliations", &models.AffiliationPerson{}); err != nil {
		return fmt.Errorf("failed to set up affiliations join table: %w", err)
	}

	err := db.AutoMigrate(
		&models.Location{},
		&models.Affiliation{},
		&models.Person{},
		&models.LocationPerson{},
		&models.AffiliationPerson{},
		&models.ImportRun{},
	)
	if err != nil {
		return fmt.Errorf("GORM AutoMigrate failed: %w", err)
	}
	return nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if dsn == ":memory:" {
		return "file::memory:?_foreign_keys=on"
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}
