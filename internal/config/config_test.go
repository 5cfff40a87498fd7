package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.ServerPort)
	assert.Equal(t, 60, cfg.RedisCacheTTL)
	assert.False(t, cfg.RateLimitEnabled)
	assert.False(t, cfg.MigrateDirectory)
	assert.Contains(t, cfg.PostgresDSN(), "dbname=linkup")
}

func TestLoadFileReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "SERVER_PORT=8088\nRATE_LIMIT_ENABLED=true\nRATE_LIMIT_RPS=not-a-number\nMIGRATE_DIRECTORY=1\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	t.Cleanup(func() {
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("RATE_LIMIT_ENABLED")
		os.Unsetenv("RATE_LIMIT_RPS")
		os.Unsetenv("MIGRATE_DIRECTORY")
	})

	cfg, err := LoadFile(envFile)
	require.NoError(t, err)

	assert.Equal(t, "8088", cfg.ServerPort)
	assert.True(t, cfg.RateLimitEnabled)
	assert.Equal(t, 10, cfg.RateLimitRPS)
	assert.True(t, cfg.MigrateDirectory)
}

func TestPostgresDSNPrefersDatabaseURL(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://u:p@db:5432/x"}
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.PostgresDSN())
}

func TestLoadFileMissingFileIsIgnored(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
}
