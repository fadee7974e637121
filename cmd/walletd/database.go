package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/MarkoPoloResearchLab/teawallet/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/teawallet/internal/store/pgstore"
	"github.com/MarkoPoloResearchLab/teawallet/pkg/wallet"
	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	driverGorm = "gorm"
	driverPGX  = "pgx"

	schemePostgres = "postgres"
	schemeSQLite   = "sqlite"
)

// openStore returns the wallet store for dsn with its schema in place.
func openStore(ctx context.Context, dsn string, driver string) (wallet.Store, func() error, error) {
	scheme, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, err
	}
	if driver == driverPGX {
		if scheme != schemePostgres {
			return nil, nil, fmt.Errorf("pgx driver requires a postgres url")
		}
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := pgstore.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		cleanup := func() error {
			pool.Close()
			return nil
		}
		return pgstore.New(pool), cleanup, nil
	}

	db, cleanup, err := openDatabase(ctx, dsn, scheme, sqlitePath)
	if err != nil {
		return nil, nil, err
	}
	if err := gormstore.AutoMigrate(db); err != nil {
		_ = cleanup()
		return nil, nil, fmt.Errorf("auto migrate: %w", err)
	}
	return gormstore.New(db), cleanup, nil
}

func openDatabase(ctx context.Context, dsn string, scheme string, sqlitePath string) (*gorm.DB, func() error, error) {
	var (
		db  *gorm.DB
		err error
	)
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	switch scheme {
	case schemePostgres:
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	case schemeSQLite:
		db, err = gorm.Open(sqlite.Open(sqlitePath), cfg)
	default:
		return nil, nil, fmt.Errorf("unsupported database scheme %q", scheme)
	}
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if scheme == schemeSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return schemePostgres, "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = "teawallet.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		if err != nil {
			return "", "", err
		}
		return schemeSQLite, withBusyTimeout(sqlitePath), nil
	}
	// Anything else is a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	if err != nil {
		return "", "", err
	}
	return schemeSQLite, withBusyTimeout(sqlitePath), nil
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

func withBusyTimeout(sqlitePath string) string {
	if sqlitePath == ":memory:" || strings.Contains(sqlitePath, "?") {
		return sqlitePath
	}
	return sqlitePath + "?_pragma=busy_timeout(5000)"
}
