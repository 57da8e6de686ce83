package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const SearchLimit = 100

var (
	db *gorm.DB
)

func GetDB() *gorm.DB {
	return db
}

func init() {
	// Load env from .env
	godotenv.Load()
}

// DatabasePath returns the SQLite file the store opens. The UI shell owns the
// app sandbox directory and passes it through DB_PATH.
func DatabasePath() string {
	path := strings.TrimSpace(os.Getenv("DB_PATH"))
	if path == "" {
		path = "gstbilling.db"
	}
	return path
}

// ConnectDatabase opens the embedded store and sets the global DB.
// First open wins: repeat calls are no-ops so the server and the sync worker
// share one connection pool over the same file.
func ConnectDatabase() {
	if db != nil {
		return
	}

	// WAL keeps reads cheap while a drain writes; busy_timeout makes the two
	// writers (UI handler, sync engine) queue instead of failing with
	// SQLITE_BUSY.
	dsn := DatabasePath() + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	var err error
	db, err = gorm.Open(sqlite.Open(dsn), initConfig())
	if err != nil {
		log.Fatalf("failed to open database %s: %v", DatabasePath(), err)
	}

	if sqlDB, derr := db.DB(); derr == nil && sqlDB != nil {
		// SQLite allows one writer at a time. A single connection avoids
		// lock contention between the handler path and the drain path.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxIdleTime(time.Minute)
	}
	log.Printf("opened database %s", DatabasePath())
}

// SetDB replaces the global DB. Tests use this with a temp-file store.
func SetDB(conn *gorm.DB) {
	db = conn
}

// InitConfig Initialize Config
func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: initNamingStrategy(),
	}
}

// InitLog Connection Log Configuration
func initLog() logger.Interface {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:      false,
			LogLevel:      logger.Error,
			SlowThreshold: time.Second,
		},
	)
	return newLogger
}

// InitNamingStrategy Init NamingStrategy
func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}
