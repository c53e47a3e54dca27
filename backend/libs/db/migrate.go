package db

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// MigrateUp applies the migrations found in dir of fsys. A database that is
// already current is not an error.
func MigrateUp(pool *sql.DB, fsys fs.FS, dir, table string, logger *zap.Logger) error {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("db: open migrations: %w", err)
	}

	driver, err := pgxmigrate.WithInstance(pool, &pgxmigrate.Config{MigrationsTable: table})
	if err != nil {
		return fmt.Errorf("db: migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("db: migrate instance: %w", err)
	}
	// closing m would close the shared pool
	if logger != nil {
		m.Log = migrateLogger{logger: logger.Sugar()}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db: migrate up: %w", err)
	}
	return nil
}

type migrateLogger struct {
	logger *zap.SugaredLogger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Infof("migrate: "+format, v...)
}

func (l migrateLogger) Verbose() bool {
	return false
}
