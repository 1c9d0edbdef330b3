package repositories_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yigit/marketday/internal/app/migrations"
	"github.com/yigit/marketday/internal/app/repositories"
	"github.com/yigit/marketday/internal/app/repositories/storetest"
	"github.com/yigit/marketday/internal/db"
)

// testDatabaseEnv names a disposable database; every table in it is truncated.
const testDatabaseEnv = "MARKETDAY_TEST_DATABASE_URL"

func TestPostgresStoreConformance(t *testing.T) {
	url := os.Getenv(testDatabaseEnv)
	if url == "" {
		t.Skipf("%s not set; skipping PostgreSQL conformance tests", testDatabaseEnv)
	}

	ctx := context.Background()
	database, err := db.Connect(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(database.Close)

	_, err = migrations.NewMigrator(database.Pool).Migrate(ctx)
	require.NoError(t, err)

	storetest.Run(t, func(t *testing.T) repositories.Store {
		_, err := database.Pool.Exec(ctx, `TRUNCATE ledger_entries, purchases, items, students RESTART IDENTITY CASCADE`)
		require.NoError(t, err)
		return repositories.NewPostgresStore(database)
	})
}
