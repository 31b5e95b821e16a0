package database

import (
	"os"
	"path/filepath"
	"strings"

	"focuslog/internal/models"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// schema lists every table the store owns.
var schema = []interface{}{
	&models.ActivityRecord{},
	&models.ArchivedRecord{},
	&models.ProgramCategory{},
	&models.MonthlySummary{},
	&models.StoreMeta{},
	&models.ErrorLog{},
}

type DB struct {
	*gorm.DB
}

// DefaultPath is ~/.config/focuslog/focuslog.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, ".config", "focuslog", "focuslog.db"), nil
}

// dsn enables WAL so report queries do not block the sampler's writes, and
// makes lock contention wait instead of failing immediately.
func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath
	}
	return dbPath + "?_busy_timeout=5000&_journal_mode=WAL"
}

// Connect opens the SQLite store at dbPath, or DefaultPath when empty,
// creating its directory.
func Connect(dbPath string) (*DB, error) {
	if dbPath == "" {
		var err error
		if dbPath, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	db, err := gorm.Open(sqlite.Open(dsn(dbPath)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", dbPath)
	}
	return &DB{db}, nil
}

// Initialize migrates the schema and records the active period. Failure here
// is the only storage error that stops startup.
func (db *DB) Initialize() error {
	if err := db.AutoMigrate(schema...); err != nil {
		return errors.Wrap(err, "failed to initialize database schema")
	}
	if err := seedActivePeriod(db.DB); err != nil {
		return errors.Wrap(err, "failed to initialize active period")
	}
	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}
	return sqlDB.Close()
}
