package persistence

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// migrateLogger routes migrate's progress output through slog
type migrateLogger struct {
	logger *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "migrate")
}

func (l migrateLogger) Verbose() bool {
	return false
}

// RunMigrations brings the schema at databaseURL up to the newest migration
// in migrationsPath. A database left dirty by an interrupted run is refused.
func RunMigrations(logger *slog.Logger, databaseURL, migrationsPath string) error {
	switch {
	case migrationsPath == "":
		return errors.New("migrations path cannot be empty")
	case databaseURL == "":
		return errors.New("database URL cannot be empty")
	}

	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{logger: logger}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("Failed to close migrate instance", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty, fix it by hand before starting", version)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("Database schema is up to date", "version", version)
		return nil
	case err != nil:
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	if version, _, err = m.Version(); err == nil {
		logger.Info("Applied database migrations", "version", version)
	}
	return nil
}
