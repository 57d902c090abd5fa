package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/adminpanel/apiserver/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrations returns the embedded migration files for a driver.
func Migrations(driver string) (fs.FS, error) {
	switch driver {
	case config.DriverSQLite, config.DriverPostgres:
		return fs.Sub(migrationsFS, "migrations/"+driver)
	default:
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}
}

// Migrator applies the embedded schema to an open pool without taking
// ownership of it.
type Migrator struct {
	m      *migrate.Migrate
	source source.Driver
	owned  bool
}

// NewMigrator builds a migrator on top of d. The pool stays open after
// Close.
func NewMigrator(ctx context.Context, d *DB) (*Migrator, error) {
	files, err := Migrations(d.driver)
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(files, ".")
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	var (
		target database.Driver
		owned  bool
	)
	switch d.driver {
	case config.DriverPostgres:
		conn, connErr := d.Conn(ctx)
		if connErr != nil {
			_ = src.Close()
			return nil, fmt.Errorf("acquiring migration connection: %w", connErr)
		}
		// A connection-scoped driver only closes its own connection.
		target, err = postgres.WithConnection(ctx, conn, &postgres.Config{})
		if err != nil {
			_ = conn.Close()
		}
		owned = true
	default:
		// The sqlite driver closes the pool on Close, so it is never closed
		// here; it holds no resources of its own.
		target, err = sqlite.WithInstance(d.DB, &sqlite.Config{})
	}
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("init migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, d.driver, target)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("init migrator failed: %w", err)
	}
	return &Migrator{m: m, source: src, owned: owned}, nil
}

// Up applies all pending migrations. An up-to-date schema is not an error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up failed: %w", err)
	}
	return nil
}

// Down reverts every applied migration.
func (mg *Migrator) Down() error {
	if err := mg.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down failed: %w", err)
	}
	return nil
}

// Version reports the current schema version.
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close releases the migration source and, for postgres, the dedicated
// connection.
func (mg *Migrator) Close() error {
	if mg.owned {
		srcErr, dbErr := mg.m.Close()
		return errors.Join(srcErr, dbErr)
	}
	return mg.source.Close()
}

// Migrate applies all pending up migrations to d.
func Migrate(ctx context.Context, d *DB) error {
	mg, err := NewMigrator(ctx, d)
	if err != nil {
		return err
	}
	defer func() {
		_ = mg.Close()
	}()
	return mg.Up()
}
