package migrate

import (
	"embed"
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

// MigrateDb applies the embedded migrations
func MigrateDb(dbURI string) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, DatabaseURL(dbURI))
	if err != nil {
		return err
	}
	return up(m)
}

// MigrateFromSource applies the migrations found at sourceURL (e.g. file:///migrations)
func MigrateFromSource(sourceURL, dbURI string) error {
	m, err := migrate.New(sourceURL, DatabaseURL(dbURI))
	if err != nil {
		return err
	}
	return up(m)
}

// DatabaseURL selects the pgx driver for a postgres connection string
func DatabaseURL(dbURI string) string {
	for _, scheme := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dbURI, scheme) {
			return "pgx5://" + strings.TrimPrefix(dbURI, scheme)
		}
	}
	return dbURI
}

func up(m *migrate.Migrate) error {
	//nolint:errcheck // nothing to do on close errors
	defer m.Close()
	err := m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
