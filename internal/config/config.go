// Конфигурация приложения только из переменных окружения (секреты не в репозитории).
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config: корневая структура конфигурации (env-only).
type Config struct {
	App      App
	Postgres Postgres `envPrefix:"POSTGRES_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	AMQP     AMQP     `envPrefix:"AMQP_"`
	Security Security
	Dispatch Dispatch
}

// App: окружение, адрес HTTP-сервера, таймауты и время на shutdown.
type App struct {
	Env             string        `env:"APP_ENV" envDefault:"production"`
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Local reports whether the service runs on a developer machine.
func (a App) Local() bool { return a.Env == "local" }

// Postgres: DSN, размер пула, таймауты подключения и жизни соединений.
type Postgres struct {
	DSN             string        `env:"DSN"`
	MaxConns        int32         `env:"MAX_CONNS" envDefault:"25"`
	MinConns        int32         `env:"MIN_CONNS" envDefault:"2"`
	MaxConnLifetime time.Duration `env:"MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime time.Duration `env:"MAX_CONN_IDLE_TIME" envDefault:"30m"`
	ConnectTimeout  time.Duration `env:"CONNECT_TIMEOUT" envDefault:"5s"`
	MigrateOnStart  bool          `env:"MIGRATE_ON_START" envDefault:"true"`
}

// Redis: адрес, пароль, пул, таймауты. Пустой Addr отключает Redis.
type Redis struct {
	Addr         string        `env:"ADDR"`
	Password     string        `env:"PASSWORD"`
	DB           int           `env:"DB" envDefault:"0"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// AMQP: брокер для событий поездок. Пустой URL отключает публикацию.
type AMQP struct {
	URL      string `env:"URL"`
	Exchange string `env:"EXCHANGE" envDefault:"okada.rides"`
}

// Security: JWT, лимиты запросов и начальный администратор.
type Security struct {
	JWTSecret      string        `env:"JWT_SECRET"`
	AccessTTL      time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL     time.Duration `env:"JWT_REFRESH_TTL" envDefault:"720h"`
	RateLimitRPS   int           `env:"RATE_LIMIT_RPS" envDefault:"100"`
	AdminEmail     string        `env:"ADMIN_EMAIL"`
	AdminPassword  string        `env:"ADMIN_PASSWORD"`
	TrustedProxies []string      `env:"TRUSTED_PROXIES" envSeparator:","`
}

// Dispatch: хранилище, журнал активности, фоновая отмена зависших заказов, тарифы.
type Dispatch struct {
	Storage            string        `env:"STORAGE" envDefault:"memory"`
	ActivityRetention  int           `env:"ACTIVITY_RETENTION" envDefault:"1000"`
	PendingRideTimeout time.Duration `env:"PENDING_RIDE_TIMEOUT" envDefault:"0s"`
	SweepInterval      time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`

	// PricingJSON overrides the built-in pricing table when set.
	PricingJSON string `env:"PRICING_JSON"`
}

// Load читает конфиг из env; JWT_SECRET обязателен.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Dispatch.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STORAGE=postgres")
		}
	default:
		return fmt.Errorf("unknown STORAGE %q (want memory or postgres)", c.Dispatch.Storage)
	}
	if c.Dispatch.PendingRideTimeout < 0 {
		return fmt.Errorf("PENDING_RIDE_TIMEOUT must not be negative")
	}
	if c.Dispatch.PendingRideTimeout > 0 && c.Dispatch.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive when PENDING_RIDE_TIMEOUT is set")
	}
	return nil
}
