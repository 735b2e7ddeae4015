package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"accountsvc/internal/config"
	"accountsvc/pkg/logger"
)

// Open connects to the SQL backend selected by STORAGE_DRIVER and verifies
// the connection before returning it.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (*sql.DB, error) {
	var (
		driverName string
		dsn        string
	)

	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		driverName = "sqlite3"
		dsn = SQLiteDSN(cfg.Storage.SQLitePath)
	case config.DriverPostgres:
		driverName = "postgres"
		dsn = cfg.Database.DSN()
	default:
		return nil, fmt.Errorf("driver %q is not a SQL backend", cfg.Storage.Driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}

	if driverName == "sqlite3" {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}

	log.Info("Database connection established", map[string]interface{}{
		"driver": driverName,
	})
	return db, nil
}

// SQLiteDSN enables foreign keys, which sqlite leaves off by default.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
}
