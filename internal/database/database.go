// Package database owns the GORM connection and catalog schema.
package database

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stkw0/lms/internal/config"
	"github.com/stkw0/lms/internal/logger"
)

var db *gorm.DB

// Initialize opens the configured database and migrates the schema.
func Initialize(cfg *config.DatabaseConfig) error {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}
	if cfg.LogQueries {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	var err error
	switch cfg.Type {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		logger.Info("connected to postgres database %s@%s:%d", cfg.Database, cfg.Host, cfg.Port)
	default:
		if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err = gorm.Open(sqlite.Open(cfg.DatabasePath+"?_busy_timeout=5000"), gormCfg)
		if err != nil {
			return fmt.Errorf("failed to open sqlite database: %w", err)
		}
		logger.Info("opened sqlite database at %s", cfg.DatabasePath)
	}

	if err := Migrate(db); err != nil {
		return err
	}
	return nil
}

// Migrate creates or updates the catalog schema.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&MediaLibrary{},
		&ScanSettings{},
		&Artist{},
		&Release{},
		&ClusterType{},
		&Cluster{},
		&Track{},
		&TrackArtistLink{},
		&TrackCluster{},
	); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return nil
}

// GetDB returns the initialized database handle.
func GetDB() *gorm.DB {
	return db
}
