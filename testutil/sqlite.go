// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stitchline/store_backend/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQLite opens a file-backed SQLite database in t.TempDir and installs it
// as the process database. Transactions begin IMMEDIATE so concurrent
// writers serialize the way row locks serialize them on MySQL.
func OpenSQLite(t testing.TB, migrate func(*gorm.DB) error) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=10000&_foreign_keys=off",
		filepath.Join(t.TempDir(), "test.db"))
	cfg := config.GormConfig()
	cfg.Logger = logger.Default.LogMode(logger.Silent)
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if migrate != nil {
		if err := migrate(db); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}

	prev := config.GetDB()
	config.SetDB(db)
	t.Cleanup(func() {
		config.SetDB(prev)
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
