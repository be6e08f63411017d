package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Engine.ChoiceBaseXP)
	assert.Equal(t, 3, cfg.Engine.TxRetries)
	assert.Equal(t, 5*time.Second, cfg.Engine.LockTimeout)
	assert.Equal(t, 64, cfg.Scenarios.CacheSize)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, zerolog.InfoLevel, cfg.Log.ZerologLevel())

	loc, err := cfg.Engine.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_FileAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	yaml := `
database:
  host: db.internal
  port: 6543
engine:
  timezone: Europe/Istanbul
  choice_base_xp: 12
storage:
  driver: memory
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("DATABASE_HOST", "env-host")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 12, cfg.Engine.ChoiceBaseXP)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, zerolog.DebugLevel, cfg.Log.ZerologLevel())
	assert.Equal(t, "postgres://conscience:@env-host:6543/conscience?sslmode=disable", cfg.Database.DSN())
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_DRIVER", "sqlite")

	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestValidate_BadTimezone(t *testing.T) {
	cfg := Config{
		Storage: StorageConfig{Driver: DriverMemory},
		Engine:  EngineConfig{Timezone: "Mars/Olympus"},
	}
	assert.Error(t, cfg.Validate())
}
