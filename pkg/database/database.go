package database

import (
	"fmt"
	"time"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/config"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the database described by dbConfig and applies pool settings.
func InitDB(dbConfig *config.DBConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dbConfig.Driver {
	case "sqlite":
		dialector = sqlite.Open(dbConfig.GetDSN())
	default:
		dialector = postgres.New(postgres.Config{
			DSN:                  dbConfig.GetDSN(),
			PreferSimpleProtocol: true, // Disables implicit prepared statement usage
		})
	}

	db, err := Open(dialector, dbConfig.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if dbConfig.Driver == "sqlite" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
		sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)
	}

	log.Info("Database connected successfully",
		zap.String("driver", dbConfig.Driver),
		zap.String("db_name", dbConfig.DBName))

	return db, nil
}

// Open wraps gorm.Open with the settings every connection in this service uses:
// UTC timestamps and translated driver errors.
func Open(dialector gorm.Dialector, level logger.LogLevel) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// MigrateModels runs migrations for the provided models
func MigrateModels(db *gorm.DB, log *zap.Logger, models ...interface{}) error {
	if db == nil {
		return fmt.Errorf("database is not initialized")
	}

	start := time.Now()
	log.Info("Starting database migration...")

	if err := db.AutoMigrate(models...); err != nil {
		log.Error("Database migration failed", zap.Error(err))
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	log.Info("Database migration completed successfully",
		zap.Duration("duration", time.Since(start)))
	return nil
}

// Ping checks that the underlying connection is alive.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
