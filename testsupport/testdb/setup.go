// Package testdb provides the journal database for tests.
package testdb

import (
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	tcpg "github.com/aurigaai/auriga-setup-agent-go/testsupport/tcpostgres"
)

var (
	once sync.Once
	pool *pgxpool.Pool
)

// InitTestDb returns a pool to an empty, migrated journal database. The
// database is prepared once per test binary, tables are cleared on every call.
// TESTDB_URL selects an external database instead of a container.
// Tests are skipped with -short.
func InitTestDb(t testing.TB) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("needs a database")
	}
	once.Do(func() {
		if os.Getenv("TESTDB_URL") != "" {
			pool = tcpg.SetupExternalTestDb()
		} else {
			pool = tcpg.SetupTestDb()
		}
	})
	tcpg.ClearAllTables(pool)
	return pool
}
