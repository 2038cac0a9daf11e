// Command migrate_data copies every table from the sqlite database at DB_PATH
// into the postgres database described by the DB_* settings. Rows already
// present in postgres are skipped, so the copy can be re-run.
package main

import (
	"fmt"
	"os"
	"reflect"

	"hospital-chat/internal/config"
	"hospital-chat/internal/database"
	"hospital-chat/internal/models"
	"hospital-chat/pkg/logging"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const batchSize = 200

func main() {
	cfg := config.LoadConfig()
	log := logging.New(cfg.LogLevel)

	// 1. Connect to SQLite (Source)
	sqliteDB, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		log.Error("failed to connect to sqlite", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	log.Info("connected to sqlite", "path", cfg.DBPath)

	// 2. Connect to PostgreSQL (Destination)
	pgDB, err := gorm.Open(postgres.Open(database.PostgresDSN(cfg)), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		log.Error("failed to connect to postgres", "host", cfg.DBHost, "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(pgDB); err != nil {
		log.Error("postgres schema migration failed", "error", err)
		os.Exit(1)
	}

	log.Info("starting data migration")
	failed := 0
	for _, model := range models.All() {
		n, err := copyTable(sqliteDB, pgDB, model)
		table := tableName(pgDB, model)
		if err != nil {
			failed++
			log.Error("table migration failed", "table", table, "error", err)
			continue
		}
		log.Info("table migrated", "table", table, "rows", n)
	}
	if failed > 0 {
		log.Error("migration finished with errors", "failed_tables", failed)
		os.Exit(1)
	}
	log.Info("migration completed")
}

// copyTable reads every row of model's table from src and inserts it into
// dst inside one transaction.
func copyTable(src, dst *gorm.DB, model any) (int, error) {
	rows := reflect.New(reflect.SliceOf(reflect.TypeOf(model).Elem()))
	if err := src.Model(model).Find(rows.Interface()).Error; err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}
	n := rows.Elem().Len()
	if n == 0 {
		return 0, nil
	}
	err := dst.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows.Interface(), batchSize).Error
	})
	if err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	return n, nil
}

func tableName(db *gorm.DB, model any) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return reflect.TypeOf(model).Elem().Name()
	}
	return stmt.Schema.Table
}
