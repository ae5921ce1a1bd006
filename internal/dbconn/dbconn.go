// Package dbconn opens the shared *sqlx.DB connection pool every
// binary (cmd/server, cmd/reprocess-failed, cmd/generate-key) needs,
// sized from config.DatabaseConfig the way
// original_source/src/db/database.rs sizes its PgPoolOptions.
package dbconn

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Ladvien/self-sensored/config"
)

// Open connects to Postgres and sizes the pool per cfg, then verifies
// connectivity with a ping before returning.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MinConnections)
	db.SetConnMaxLifetime(cfg.MaxLifetime.Duration)
	db.SetConnMaxIdleTime(cfg.IdleTimeout.Duration)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout.Duration)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
