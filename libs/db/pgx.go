// Package db owns the Postgres pool. The booking engine is a single service
// in front of one database, so pool sizing is an env-tunable knob here rather
// than a per-caller decision.
package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rk-sharma/detailbook/libs/config"
)

type Pool struct {
	*pgxpool.Pool
}

// Open parses databaseURL, applies the engine's pool settings, and verifies
// connectivity before returning. A pool that cannot ping is closed and the
// error returned; the caller has nothing to clean up.
func Open(ctx context.Context, databaseURL string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = int32(config.Int("DB_MAX_CONNS", 16))
	cfg.MinConns = int32(config.Int("DB_MIN_CONNS", 2))
	cfg.MaxConnLifetime = config.Duration("DB_CONN_LIFETIME", time.Hour)
	cfg.MaxConnIdleTime = config.Duration("DB_CONN_IDLE_TIME", 10*time.Minute)
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Pool{Pool: pool}, nil
}

func (p *Pool) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// ReadyCheck adapts the pool for the /readyz dependency list.
func ReadyCheck(pool *Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if pool == nil || pool.Pool == nil {
			return errors.New("db not configured")
		}
		return pool.Ping(ctx)
	}
}
