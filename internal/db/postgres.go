// Пул pgx для хранилища поездок и кошельков.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/okadago/backend/internal/config"
)

const applicationName = "okada-api"

// NewPostgres opens the pool and pings it within ConnectTimeout. Sessions run in UTC so
// start_time/end_time round-trip without a zone shift.
func NewPostgres(ctx context.Context, cfg config.Postgres, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	cc := poolCfg.ConnConfig
	cc.ConnectTimeout = cfg.ConnectTimeout
	if cc.RuntimeParams == nil {
		cc.RuntimeParams = map[string]string{}
	}
	if _, ok := cc.RuntimeParams["application_name"]; !ok {
		cc.RuntimeParams["application_name"] = applicationName
	}
	cc.RuntimeParams["timezone"] = "UTC"

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres %s: %w", cc.Host, err)
	}
	logger.Info("postgres connected",
		zap.String("host", cc.Host),
		zap.String("database", cc.Database),
		zap.Int32("max_conns", cfg.MaxConns),
	)
	return pool, nil
}
