package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrationsSortsAndSkipsOtherFiles(t *testing.T) {
	files := fstest.MapFS{
		"002_items.sql": {Data: []byte("CREATE TABLE b();")},
		"001_init.sql":  {Data: []byte("CREATE TABLE a();")},
		"README.md":     {Data: []byte("notes")},
		"old/003_x.sql": {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(files)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "001", migrations[0].Version)
	assert.Equal(t, "001_init.sql", migrations[0].Name)
	assert.Equal(t, "CREATE TABLE a();", migrations[0].SQL)
	assert.Equal(t, "002", migrations[1].Version)
}

func TestLoadMigrationsRejectsDuplicateVersions(t *testing.T) {
	files := fstest.MapFS{
		"001_init.sql":  {Data: []byte("A")},
		"001_again.sql": {Data: []byte("B")},
	}

	_, err := LoadMigrations(files)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate migration version 001")
}

func TestEmbeddedSchema(t *testing.T) {
	migrations, err := NewMigrator(nil).Pending()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, "001_init.sql", migrations[0].Name)
	for _, table := range []string{"students", "items", "purchases", "ledger_entries"} {
		assert.Contains(t, migrations[0].SQL, table)
	}
}
