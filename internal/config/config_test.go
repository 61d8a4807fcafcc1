package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("KRYPTON_DATABASE_URL", "mysql://krypton@localhost:3306/krypton")
	t.Setenv("KRYPTON_DATABASE_TOKEN", "s3cret")
	t.Setenv("KRYPTON_AUTH_JWT_SECRET", "jwt-secret")
}

func TestLoadConfig_EnvOnly(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "mysql://krypton@localhost:3306/krypton", cfg.Database.URL)
	assert.Equal(t, "s3cret", cfg.Database.Token)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(1), cfg.Server.NodeID)
	assert.Equal(t, 5*time.Minute, cfg.Market.PollInterval)
	assert.Equal(t, time.Hour, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.InDelta(t, 50000, cfg.Market.FallbackPrices["BTC"], 0.0001)
	assert.InDelta(t, 1.18, cfg.Market.FiatRates["EUR"], 0.0001)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	t.Setenv("KRYPTON_DATABASE_URL", "")
	t.Setenv("KRYPTON_DATABASE_TOKEN", "")
	t.Setenv("KRYPTON_AUTH_JWT_SECRET", "")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KRYPTON_DATABASE_URL")
	assert.Contains(t, err.Error(), "KRYPTON_DATABASE_TOKEN")
	assert.Contains(t, err.Error(), "KRYPTON_AUTH_JWT_SECRET")
}

func TestLoadConfig_FileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
database:
  driver: postgres
  url: postgres://krypton@db:5432/krypton
  token: from-file
  query_timeout: 3s
auth:
  jwt_secret: file-secret
market:
  poll_interval: 1m
  fallback_prices:
    btc: 42000
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("KRYPTON_DATABASE_TOKEN", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "from-env", cfg.Database.Token)
	assert.Equal(t, 3*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, time.Minute, cfg.Market.PollInterval)
	assert.InDelta(t, 42000, cfg.Market.FallbackPrices["BTC"], 0.0001)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	setRequiredEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_UnsupportedDriver(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "oracle", URL: "x", Token: "y"},
		Auth:     AuthConfig{JWTSecret: "z"},
		Market:   MarketConfig{PollInterval: time.Minute},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestLoadConfig_NodeID(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KRYPTON_SERVER_NODE_ID", "7")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Server.NodeID)

	t.Setenv("KRYPTON_SERVER_NODE_ID", "1024")
	_, err = LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KRYPTON_SERVER_NODE_ID")
}
