package db

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/warenvoyage/apiserver/config"
)

// DefaultMigrationsDir is relative to the repository root.
const DefaultMigrationsDir = "internal/db/migrations"

// Direction selects which migrations Migrate applies.
type Direction int

const (
	Up Direction = iota
	Down
)

// Migrate applies every migration in dir in the given direction. Having
// nothing to apply is not an error.
func Migrate(cfg config.DatabaseConfig, dir string, direction Direction) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}

	migrator, err := migrate.New("file://"+filepath.ToSlash(abs), URL(cfg))
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	switch direction {
	case Up:
		err = migrator.Up()
	case Down:
		err = migrator.Down()
	default:
		return fmt.Errorf("unknown migration direction %d", direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate failed: %w", err)
	}
	return nil
}
