package sqlite

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/authbase/internal/auth/store/drivers/sqlite/migrations"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ApplyMigrations runs the embedded up migrations that have not been applied
// yet. Running it on an up to date database is a no-op.
func (s *Store) ApplyMigrations() error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: migrate up: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied migration version. dirty is set when a
// migration failed halfway and needs manual repair.
func (s *Store) SchemaVersion() (version uint, dirty bool, err error) {
	m, err := s.migrator()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// migrator wires golang-migrate to the open handle. The instance is not
// closed: that would close s.db too.
func (s *Store) migrator() (*migrate.Migrate, error) {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("sqlite: migrate driver: %w", err)
	}
	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return nil, fmt.Errorf("sqlite: migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return m, nil
}
