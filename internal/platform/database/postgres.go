package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver "pgx"
	_ "github.com/lib/pq"              // PostgreSQL driver "postgres"
	"github.com/ridloal/inventory-pos/internal/platform/config"
	"github.com/ridloal/inventory-pos/internal/platform/logger"
	"go.uber.org/zap"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 25
	connMaxLifetime = 5 * time.Minute
)

func Connect(cfg config.DBConfig) (*sql.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "pgx"
	}
	db, err := sql.Open(driver, WithSessionTimeouts(cfg.DSN, cfg.LockTimeout, cfg.StatementTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err = db.Ping(); err != nil {
		db.Close() // Close connection if ping fails
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Successfully connected to the database", zap.String("driver", driver))
	return db, nil
}

// WithSessionTimeouts adds lock_timeout and statement_timeout runtime
// parameters to the DSN so a blocked row lock surfaces as an error instead of
// waiting forever. Both pgx and lib/pq forward unknown parameters to the server.
func WithSessionTimeouts(dsn string, lockTimeout, statementTimeout time.Duration) string {
	params := map[string]string{}
	if lockTimeout > 0 {
		params["lock_timeout"] = strconv.FormatInt(lockTimeout.Milliseconds(), 10)
	}
	if statementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(statementTimeout.Milliseconds(), 10)
	}
	if len(params) == 0 {
		return dsn
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		q := u.Query()
		for k, v := range params {
			if q.Get(k) == "" {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
		return u.String()
	}

	// key=value form
	for _, k := range []string{"lock_timeout", "statement_timeout"} {
		v, ok := params[k]
		if !ok || strings.Contains(dsn, k+"=") {
			continue
		}
		dsn = strings.TrimSpace(dsn + " " + k + "=" + v)
	}
	return dsn
}
