package repository

import (
	"embed"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

// Migrate applies every pending up migration for the database dialect.
func (d *DB) Migrate() error {
	m, err := d.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return dbError("migrate up", err)
	}
	v, dirty, _ := m.Version()
	d.logger.Info("database migrated", "version", v, "dirty", dirty)
	return nil
}

// MigrateDown reverts every migration.
func (d *DB) MigrateDown() error {
	m, err := d.migrator()
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return dbError("migrate down", err)
	}
	return nil
}

// migrator shares the open *sql.DB; it is never closed here since that would
// close the pool too.
func (d *DB) migrator() (*migrate.Migrate, error) {
	dir := "postgres"
	if d.Dialect == dialect.SQLite {
		dir = "sqlite"
	}
	src, err := iofs.New(migrations, "migrations/"+dir)
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	var drv database.Driver
	switch d.Dialect {
	case dialect.Postgres:
		drv, err = pgxmigrate.WithInstance(d.SQL(), &pgxmigrate.Config{})
	case dialect.SQLite:
		drv, err = sqlitemigrate.WithInstance(d.SQL(), &sqlitemigrate.Config{})
	default:
		err = fmt.Errorf("no migration driver for %s", d.Dialect)
	}
	if err != nil {
		return nil, dbError("migration driver", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, d.Dialect, drv)
	if err != nil {
		return nil, dbError("migrate init", err)
	}
	return m, nil
}
