package main

import (
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/okadago/backend/internal/config"
	"github.com/okadago/backend/internal/migrations"
)

func main() {
	config.LoadDotEnvUp(8)

	var (
		direction = flag.String("direction", "up", "up|down|version|force")
		steps     = flag.Int("steps", 0, "number of steps (0 = all)")
		version   = flag.Int("version", -1, "target version for -direction force")
		dsn       = flag.String("dsn", os.Getenv("POSTGRES_DSN"), "postgres DSN (default $POSTGRES_DSN)")
	)
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	if *dsn == "" {
		logger.Fatal("POSTGRES_DSN is required")
	}

	runner, err := migrations.NewRunner(*dsn)
	if err != nil {
		logger.Fatal("migrate init", zap.Error(err))
	}
	defer func() { _ = runner.Close() }()

	switch *direction {
	case "up":
		if *steps > 0 {
			err = runner.Steps(*steps)
		} else {
			err = runner.Up()
		}
	case "down":
		if *steps > 0 {
			err = runner.Steps(-*steps)
		} else {
			err = runner.Down()
		}
	case "force":
		if *version < 0 {
			logger.Fatal("-version is required for force")
		}
		err = runner.Force(*version)
	case "version":
	default:
		logger.Fatal("invalid -direction", zap.String("direction", *direction))
	}
	if err != nil {
		logger.Fatal("migration failed", zap.String("direction", *direction), zap.Error(err))
	}

	v, dirty, err := runner.Version()
	if err != nil {
		logger.Fatal("read schema version", zap.Error(err))
	}
	logger.Info("migrations ok", zap.String("direction", *direction), zap.Uint("version", v), zap.Bool("dirty", dirty))
}
