// Package database opens the gorm connection for the configured SQL driver.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/naciremadream81/permitpro-v1/internal/config"
	"github.com/naciremadream81/permitpro-v1/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Pool defaults for database/sql.
const (
	maxOpenConns    = 25
	maxIdleConns    = 10
	connMaxLifetime = 5 * time.Minute
	connMaxIdleTime = time.Minute
)

// DSN builds the driver-specific connection string.
func DSN(cfg *config.Config) (string, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode), nil
	case config.StoreMySQL:
		network, address := "tcp", fmt.Sprintf("%s:%s", cfg.DBHost, cfg.DBPort)
		// Cloud SQL exposes MySQL on a unix socket under /cloudsql/.
		if strings.HasPrefix(cfg.DBHost, "/cloudsql/") {
			network, address = "unix", cfg.DBHost
		}
		return fmt.Sprintf("%s:%s@%s(%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			cfg.DBUser, cfg.DBPassword, network, address, cfg.DBName), nil
	default:
		return "", fmt.Errorf("store driver %q has no SQL connection", cfg.StoreDriver)
	}
}

// Connect opens a gorm connection and tunes the pool.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	if cfg.StoreDriver == config.StoreMySQL {
		dialector = mysql.Open(dsn)
	} else {
		dialector = postgres.Open(dsn)
	}

	logLevel := gormlogger.Warn
	if cfg.IsProduction() {
		logLevel = gormlogger.Error
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return db, nil
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Contractor{},
		&models.PermitPackage{},
		&models.PackageContractor{},
		&models.ChecklistItem{},
		&models.Document{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Ping checks that the database answers within ctx.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
