package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/fieldcare/fieldcare-backend/internal/platform/envutil"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

type Config struct {
	// DatabaseURL selects Postgres when set; otherwise SQLitePath is used.
	DatabaseURL   string
	SQLitePath    string
	MaxOpenConns  int
	SlowThreshold time.Duration
}

func LoadConfig() Config {
	return Config{
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:    envutil.String("SQLITE_PATH", "fieldcare.db"),
		MaxOpenConns:  envutil.Int("DB_MAX_OPEN_CONNS", 10),
		SlowThreshold: envutil.Duration("DB_SLOW_THRESHOLD", time.Second),
	}
}

func (c Config) Driver() string {
	if c.DatabaseURL != "" {
		return "postgres"
	}
	return "sqlite"
}

// Open connects to the configured database. SQLite runs with a single
// connection because writers would otherwise fail with SQLITE_BUSY.
func Open(logg *logger.Logger, cfg Config) (*gorm.DB, error) {
	serviceLog := logg.With("service", "Database", "driver", cfg.Driver())

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             cfg.SlowThreshold,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	var dialector gorm.Dialector
	maxOpen := cfg.MaxOpenConns
	if cfg.Driver() == "postgres" {
		dialector = postgres.Open(cfg.DatabaseURL)
	} else {
		dialector = sqlite.Open(sqliteDSN(cfg.SQLitePath))
		maxOpen = 1
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver(), err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	serviceLog.Info("database connected")
	return db, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_busy_timeout=5000"
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
