package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appRepos "github.com/yigit/marketday/internal/app/repositories"
	"github.com/yigit/marketday/internal/app/repositories/memory"
	"github.com/yigit/marketday/internal/config"
	"github.com/yigit/marketday/internal/pkg/auth"
)

const memoryConfig = `
database:
  driver: memory
jwt:
  secret: cli-test-secret
teacher:
  password_hash: "$2a$04$abcdefghijklmnopqrstuuNotARealHashButNonEmptyxxxxxxxxx"
logging:
  level: error
`

// execute runs marketctl with args against store and returns stdout
func execute(t *testing.T, store appRepos.Store, stdin string, args ...string) (string, error) {
	t.Helper()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(memoryConfig), 0o600))

	opts := &RootOptions{
		OpenStore: func(*config.Config, zerolog.Logger) (appRepos.Store, error) { return store, nil },
	}
	cmd := newRootCommand(opts)

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "marketctl", cmd.Use)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{{"migrate"}, {"hash-password"}, {"items", "import"}, {"items", "export"}} {
		t.Run(strings.Join(path, " "), func(t *testing.T) {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Equal(t, path[len(path)-1], sub.Name())
		})
	}
}

func TestHashPassword(t *testing.T) {
	t.Run("argument", func(t *testing.T) {
		out, err := execute(t, nil, "", "hash-password", "s3cret")
		require.NoError(t, err)
		assert.True(t, auth.CheckPassword(strings.TrimSpace(out), "s3cret"))
	})

	t.Run("stdin", func(t *testing.T) {
		out, err := execute(t, nil, "from-stdin\n", "hash-password")
		require.NoError(t, err)
		assert.True(t, auth.CheckPassword(strings.TrimSpace(out), "from-stdin"))
	})

	t.Run("empty stdin", func(t *testing.T) {
		_, err := execute(t, nil, "", "hash-password")
		assert.Error(t, err)
	})
}

func TestMigrateList(t *testing.T) {
	out, err := execute(t, nil, "", "migrate", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "001\t001_init.sql")
}

func TestMigrateRejectsMemoryDriver(t *testing.T) {
	_, err := execute(t, nil, "", "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}

func TestItemsImportThenExport(t *testing.T) {
	store := memory.NewStore()

	csvPath := filepath.Join(t.TempDir(), "items.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("name,cost,quantity\nPencil set,3,20\n,2,1\n"), 0o600))

	out, err := execute(t, store, "", "items", "import", csvPath)
	require.NoError(t, err)
	assert.Equal(t, "1 items imported\nskipped line 3: missing name\n", out)

	out, err = execute(t, store, "", "items", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "id,name,cost,quantity,image_url,link")
	assert.Contains(t, out, "Pencil set,3,20,,")
}

func TestItemsExportTemplate(t *testing.T) {
	out, err := execute(t, nil, "", "items", "export", "--template")
	require.NoError(t, err)
	assert.Contains(t, out, "name,cost,quantity,image_url")
	assert.Contains(t, out, "Board game,15,2,")
}
