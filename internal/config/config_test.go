package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 4, cfg.Game.MaxPlayers)
	assert.Equal(t, 10, cfg.Game.MaxRounds)
	assert.Equal(t, 5, cfg.Game.MandateThreshold)
	assert.Equal(t, "file", cfg.Cards.Source)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Redis.SessionTTL)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  address: ":9999"
logging:
  level: debug
  format: console
game:
  max_players: 6
  mandate_threshold: 3
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 6, cfg.Game.MaxPlayers)
	assert.Equal(t, 3, cfg.Game.MandateThreshold)
	// Untouched sections keep their defaults.
	assert.Equal(t, 10, cfg.Game.MaxRounds)
}

func TestLoad_BrokenFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: valid"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_ValidationRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
game:
  max_players: 1
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "max_players")
}

func TestLoad_PostgresSourceRequiresDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
cards:
  source: postgres
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "database.enabled")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	dsn := DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Password: "pw",
		Database: "power", SSLMode: "disable",
	}.DSN()
	assert.Equal(t, "host=db port=5433 user=u password=pw dbname=power sslmode=disable", dsn)
}
