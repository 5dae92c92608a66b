// Package migrations holds the embedded SQL schema and runs it with golang-migrate.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var files embed.FS

// Runner applies the embedded migrations to one database.
type Runner struct {
	m *migrate.Migrate
}

// NewRunner opens a migrator for a postgres DSN.
func NewRunner(dsn string) (*Runner, error) {
	src, err := iofs.New(files, "sql")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, DriverURL(dsn))
	if err != nil {
		return nil, fmt.Errorf("migrate init: %w", err)
	}
	return &Runner{m: m}, nil
}

// Up applies all pending migrations; an up-to-date schema is not an error.
func (r *Runner) Up() error {
	return ignoreNoChange(r.m.Up())
}

// Down rolls back every migration.
func (r *Runner) Down() error {
	return ignoreNoChange(r.m.Down())
}

// Steps applies n migrations forward (n > 0) or backward (n < 0).
func (r *Runner) Steps(n int) error {
	return ignoreNoChange(r.m.Steps(n))
}

// Version reports the applied schema version. A database without migrations reports 0.
func (r *Runner) Version() (version uint, dirty bool, err error) {
	version, dirty, err = r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Force sets the version without running anything; used to clear a dirty flag.
func (r *Runner) Force(version int) error {
	return r.m.Force(version)
}

func (r *Runner) Close() error {
	srcErr, dbErr := r.m.Close()
	return errors.Join(srcErr, dbErr)
}

// DriverURL rewrites a postgres DSN to the scheme the pgx/v5 driver registers ("pgx5").
func DriverURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://", "pgx://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
