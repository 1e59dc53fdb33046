// Package repositories provides the data access layer. It is a pure
// persistence boundary: business rules live in the services that call it.
package repositories

import (
	"fmt"
	"time"

	"aurum/internal/config"
	"aurum/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DBConfig holds database connection pool configuration.
type DBConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Connect opens the postgres connection, runs migrations and applies pool
// settings. TranslateError is on so unique-index violations surface as
// gorm.ErrDuplicatedKey, which AppendEntry relies on for idempotency.
func Connect(cfg DBConfig) (*gorm.DB, error) {
	dsn := "host=" + config.GetEnv("DB_HOST", "localhost") +
		" user=" + config.GetEnv("DB_USER", "postgres") +
		" password=" + config.GetEnv("DB_PASSWORD", "postgres") +
		" dbname=" + config.GetEnv("DB_NAME", "aurum") +
		" port=" + config.GetEnv("DB_PORT", "5432") +
		" sslmode=" + config.GetEnv("DB_SSLMODE", "disable")

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Wallet{},
		&models.LedgerEntry{},
		&models.DepositOrder{},
		&models.WithdrawOrder{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}
