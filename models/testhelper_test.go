package models_test

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Aman-CU/gstbilling/config"
	"github.com/Aman-CU/gstbilling/models"
)

// setupTestDB points the global store at a fresh temp file and migrates it.
// The previous DB is restored on cleanup so tests stay independent.
func setupTestDB(t *testing.T) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	conn, err := gorm.Open(sqlite.Open(path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if sqlDB, derr := conn.DB(); derr == nil && sqlDB != nil {
		sqlDB.SetMaxOpenConns(1)
	}

	previous := config.GetDB()
	config.SetDB(conn)
	t.Cleanup(func() {
		if sqlDB, derr := conn.DB(); derr == nil && sqlDB != nil {
			_ = sqlDB.Close()
		}
		config.SetDB(previous)
	})

	models.MigrateTable()
}
