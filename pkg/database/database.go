package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// ErrNotInitialized is returned before Connect or SetDB ran
var ErrNotInitialized = errors.New("database is not initialized")

// InitDB opens the postgres pool described by dbConfig
func InitDB(dbConfig *config.DBConfig, log *zap.Logger) (*gorm.DB, error) {
	pgConfig := postgres.Config{
		DSN:                  dbConfig.GetDSN(),
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	db, err := gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger: logger.Default.LogMode(dbConfig.LogLevel),
	})
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Error("Failed to get database object", zap.Error(err))
		return nil, err
	}

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)
	return db, nil
}

// Connect opens the pool and waits until postgres answers, retrying while it
// refuses connections. On success the pool becomes the global instance.
func Connect(ctx context.Context, dbConfig *config.DBConfig, retry *Retrier, log *zap.Logger) (*gorm.DB, error) {
	var db *gorm.DB
	err := retry.Do(ctx, func() error {
		opened, err := InitDB(dbConfig, log)
		if err != nil {
			return err
		}
		if err := ping(ctx, opened); err != nil {
			if sqlDB, derr := opened.DB(); derr == nil {
				sqlDB.Close()
			}
			return err
		}
		db = opened
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s:%s/%s: %w", dbConfig.Host, dbConfig.Port, dbConfig.DBName, err)
	}

	log.Info("Database connected successfully",
		zap.String("host", dbConfig.Host),
		zap.String("db_name", dbConfig.DBName))
	DB = db
	return db, nil
}

// MigrateModels runs migrations for the provided models
func MigrateModels(db *gorm.DB, models ...interface{}) error {
	if db == nil {
		return ErrNotInitialized
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	return nil
}

// Ping checks that the global instance still reaches the database
func Ping(ctx context.Context) error {
	if DB == nil {
		return ErrNotInitialized
	}
	return ping(ctx, DB)
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// SetDB replaces the global instance; tests point it at sqlite
func SetDB(db *gorm.DB) {
	DB = db
}
