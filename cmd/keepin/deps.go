package main

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/sethvargo/go-retry"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-keepin-auth"
	"github.com/goliatone/go-keepin-auth/config"
)

func newLogger(w io.Writer, cfg config.Log) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openDB opens the sqlite database and waits until it answers a ping.
func openDB(ctx context.Context, cfg config.Database, logger auth.Logger) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open database")
	}

	// sqlite serializes writers, one connection avoids SQLITE_BUSY
	sqldb.SetMaxOpenConns(1)

	attempts := cfg.PingAttempts
	if attempts == 0 {
		attempts = 1
	}

	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(100*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := sqldb.PingContext(ctx); err != nil {
			logger.Warn("database ping failed", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = sqldb.Close()
		return nil, errors.Wrap(err, errors.CategoryInternal, "database did not become ready")
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}
