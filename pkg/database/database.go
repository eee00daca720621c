package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"FitCoachAI/models"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the datastore selected by driver and migrates the schema.
// apiKey, when set, is used as the connection password for hosted datastores.
func Open(driver, dsn, apiKey string) (*gorm.DB, error) {
	dialector, err := dialectorFor(driver, dsn, apiKey)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s datastore: %w", driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// sqlite serializes writers anyway; one connection avoids "database is locked"
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenMemory opens a private in-memory sqlite datastore. name isolates
// concurrent callers (tests use t.Name()).
func OpenMemory(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", url.PathEscape(name))
	return Open("sqlite", dsn, "")
}

// Migrate creates or updates the conversations table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Conversation{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func dialectorFor(driver, dsn, apiKey string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite":
		return sqlite.Open(dsn), nil
	case "mysql":
		if apiKey != "" {
			cfg, err := mysql.ParseDSN(dsn)
			if err != nil {
				return nil, fmt.Errorf("parse mysql dsn: %w", err)
			}
			cfg.Passwd = apiKey
			dsn = cfg.FormatDSN()
		}
		return gormmysql.Open(dsn), nil
	case "postgres":
		if apiKey != "" {
			withKey, err := withPassword(dsn, apiKey)
			if err != nil {
				return nil, err
			}
			dsn = withKey
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported datastore driver %q", driver)
	}
}

// withPassword injects password into a postgres URL, or appends it to a
// key=value DSN.
func withPassword(dsn, password string) (string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse postgres url: %w", err)
		}
		user := ""
		if u.User != nil {
			user = u.User.Username()
		}
		u.User = url.UserPassword(user, password)
		return u.String(), nil
	}
	return strings.TrimSpace(dsn) + " password=" + password, nil
}
