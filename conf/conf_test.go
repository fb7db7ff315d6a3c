package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "inkhub", cfg.Server.Name)
	assert.Equal(t, "sqlite", cfg.DB.Dialect)
	assert.NotEmpty(t, cfg.DB.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Schema.Paths)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	raw := []byte(`
server:
  name: inkhub-test
db:
  dialect: postgres
  dsn: "postgres://localhost:5432/inkhub"
log:
  level: debug
schema:
  paths:
    - schemas/collections.yml
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inkhub.yml"), raw, 0o600))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "inkhub-test", cfg.Server.Name)
	assert.Equal(t, "postgres", cfg.DB.Dialect)
	assert.Equal(t, "postgres://localhost:5432/inkhub", cfg.DB.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"schemas/collections.yml"}, cfg.Schema.Paths)

	// File values merge over defaults.
	assert.Equal(t, "inkhub", cfg.Log.Name)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INKHUB_DB_DIALECT", "mysql")
	t.Setenv("INKHUB_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DB.Dialect)
	assert.Equal(t, "warn", cfg.Log.Level)
}
