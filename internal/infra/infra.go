package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/okadago/backend/internal/config"
	"github.com/okadago/backend/internal/db"
	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/events"
	"github.com/okadago/backend/internal/migrations"
	redisclient "github.com/okadago/backend/internal/redis"
	"github.com/okadago/backend/internal/settings"
	"github.com/okadago/backend/internal/store"
	"github.com/okadago/backend/internal/store/memory"
	"github.com/okadago/backend/internal/store/postgres"
	"github.com/okadago/backend/internal/store/redisstore"
)

// Infra holds the backing services chosen by the configuration. PG, Redis and AMQP are nil
// when the corresponding backend is not configured.
type Infra struct {
	Store    store.Store
	Settings settings.Admin
	Refresh  store.RefreshTokenStore

	PG    *pgxpool.Pool
	Redis *redis.Client
	AMQP  *events.AMQPPublisher
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Infra, error) {
	pricing := domain.DefaultPricing()
	if cfg.Dispatch.PricingJSON != "" {
		p, err := settings.ParsePricing([]byte(cfg.Dispatch.PricingJSON))
		if err != nil {
			return nil, fmt.Errorf("PRICING_JSON: %w", err)
		}
		pricing = p
	}

	i := &Infra{}
	ok := false
	defer func() {
		if !ok {
			i.Close()
		}
	}()

	switch cfg.Dispatch.Storage {
	case config.StoragePostgres:
		if cfg.Postgres.MigrateOnStart {
			if err := migrateUp(cfg.Postgres.DSN); err != nil {
				return nil, err
			}
			logger.Info("migrations applied")
		}
		pool, err := db.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		i.PG = pool
		i.Store = postgres.New(pool, cfg.Dispatch.ActivityRetention)
	default:
		i.Store = memory.New(cfg.Dispatch.ActivityRetention)
	}

	if cfg.Redis.Addr != "" {
		rdb, err := redisclient.New(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		i.Redis = rdb
		i.Settings = settings.NewRedis(rdb, pricing)
		i.Refresh = redisstore.NewRefreshStore(rdb, cfg.Security.RefreshTTL)
	} else {
		i.Settings = settings.NewStatic(pricing)
		i.Refresh = memory.NewRefreshTokens()
	}

	if cfg.AMQP.URL != "" {
		pub, err := events.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return nil, fmt.Errorf("amqp: %w", err)
		}
		i.AMQP = pub
	}

	ok = true
	logger.Info("infra ready",
		zap.String("storage", cfg.Dispatch.Storage),
		zap.Bool("redis", i.Redis != nil),
		zap.Bool("amqp", i.AMQP != nil),
	)
	return i, nil
}

func migrateUp(dsn string) error {
	runner, err := migrations.NewRunner(dsn)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	defer func() { _ = runner.Close() }()
	if err := runner.Up(); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// Close releases every backend that was opened.
func (i *Infra) Close() {
	if i == nil {
		return
	}
	if i.AMQP != nil {
		_ = i.AMQP.Close()
	}
	if i.Redis != nil {
		_ = i.Redis.Close()
	}
	if i.Store != nil {
		i.Store.Close()
	}
}
