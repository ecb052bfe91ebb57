//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurigaai/auriga-setup-agent-go/pkg/db/migrate"
	database "github.com/aurigaai/auriga-setup-agent-go/pkg/db/postgres"
)

// SetupTestDb starts (or reuses) a postgres container, applies the migrations
// and returns a pool for it.
func SetupTestDb() *pgxpool.Pool {
	container, err := SetupPostgres(context.Background(),
		WithName("auriga-setup-agent-test"))
	if err != nil {
		log.Fatal(err)
	}
	return setupPool(container.URL)
}

// SetupExternalTestDb uses the database given by TESTDB_URL
func SetupExternalTestDb() *pgxpool.Pool {
	return setupPool(os.Getenv("TESTDB_URL"))
}

func setupPool(dbURL string) *pgxpool.Pool {
	if err := migrate.MigrateDb(dbURL); err != nil {
		log.Fatal(err)
	}
	pool, err := database.InitWithURL(context.Background(), dbURL)
	if err != nil {
		log.Fatal(err)
	}
	return pool
}

func ClearLapReportTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from lap_report")
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearLapReportTable(pool)
}
