// Package db opens the device-resident SQLite database and reconciles its
// schema with the current model set at startup.
package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// defaultDatabasePath is the default SQLite database file name.
const defaultDatabasePath = "atlas.db"

// BuildDSN constructs a SQLite DSN with default connection parameters.
func BuildDSN(path string) string {
	dsn := strings.TrimSpace(path)
	if dsn == "" {
		dsn = defaultDatabasePath
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") {
		dsn = "file:" + dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join([]string{
		"_busy_timeout=5000",
		"_journal_mode=WAL",
		"_foreign_keys=on",
		"_synchronous=NORMAL",
	}, "&")
}

// Open connects to the SQLite database at path.
func Open(path string) (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(BuildDSN(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", path, err)
	}
	return conn, nil
}
