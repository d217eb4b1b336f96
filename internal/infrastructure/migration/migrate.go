// Package migration wraps golang-migrate with the handful of operations the
// ledger schema needs: apply, roll back, step, inspect and repair.
package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Runner drives schema migrations against an open postgres connection.
type Runner struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// New builds a Runner reading migration pairs from migrationsPath.
func New(db *sql.DB, migrationsPath string, logger *zap.Logger) (*Runner, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migrate instance: %w", err)
	}
	return &Runner{migrate: m, logger: logger}, nil
}

// Up applies every pending migration.
func (r *Runner) Up() error {
	r.logger.Info("Applying pending migrations")
	return r.finish("up", r.migrate.Up())
}

// Down rolls the schema all the way back.
func (r *Runner) Down() error {
	r.logger.Info("Rolling back all migrations")
	return r.finish("down", r.migrate.Down())
}

// Steps applies n migrations; negative n rolls back.
func (r *Runner) Steps(n int) error {
	r.logger.Info("Applying migration steps", zap.Int("steps", n))
	return r.finish("steps", r.migrate.Steps(n))
}

// finish folds ErrNoChange into success and logs where the schema landed.
func (r *Runner) finish(op string, err error) error {
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration %s: %w", op, err)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		r.logger.Info("Schema already current")
		return nil
	}
	version, dirty, verr := r.Version()
	if verr != nil {
		return verr
	}
	r.logger.Info("Migrations finished",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// Version reports the current schema version. A fresh database reports
// version 0, not an error.
func (r *Runner) Version() (uint, bool, error) {
	version, dirty, err := r.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migration version: %w", err)
	}
	return version, dirty, nil
}

// Force rewrites the recorded version without running any migration. Only
// for repairing a dirty schema after a failed run.
func (r *Runner) Force(version int) error {
	r.logger.Warn("Forcing schema version", zap.Int("version", version))
	if err := r.migrate.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and database handles.
func (r *Runner) Close() error {
	sourceErr, dbErr := r.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close migration database: %w", dbErr)
	}
	return nil
}
