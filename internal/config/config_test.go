package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAPIConfig(t *testing.T) {
	tests := []struct {
		name       string
		configFile string
		validate   func(*testing.T, *APIConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
server:
  host: 127.0.0.1
  port: 9090
  read_timeout: 5
database:
  host: localhost
  port: 5433
  user: testuser
  password: testpass
  dbname: ledgerdb
  sslmode: require
  conn_max_lifetime: "5m"
nats:
  url: "nats://localhost:4222"
  subject_prefix: "testledger"
  max_reconnects: 5
  reconnect_wait: "5s"
auth:
  api_keys:
    - key-one
    - key-two
ledger:
  sink_account: graveyard
  collection_name: testcollection
  disable_mutation: true
`,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 5, cfg.Server.ReadTimeout)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
				assert.Equal(t, "testledger", cfg.NATS.SubjectPrefix)
				assert.Equal(t, 5, cfg.NATS.MaxReconnects)
				assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
				assert.Equal(t, []string{"key-one", "key-two"}, cfg.Auth.APIKeys)
				assert.Equal(t, "graveyard", cfg.Ledger.SinkAccount)
				assert.Equal(t, "testcollection", cfg.Ledger.CollectionName)
				assert.True(t, cfg.Ledger.DisableMutation)
			},
		},
		{
			name:       "defaults without config file",
			configFile: "",
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.False(t, cfg.Debug)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 120, cfg.Server.IdleTimeout)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, "ledger", cfg.NATS.SubjectPrefix)
				assert.Equal(t, 2*time.Second, cfg.NATS.ReconnectWait)
				assert.Equal(t, "burn", cfg.Ledger.SinkAccount)
				assert.Equal(t, "thevarus2022", cfg.Ledger.CollectionName)
				assert.Equal(t, "VARUS", cfg.Ledger.CollectionSymbol)
				assert.False(t, cfg.Ledger.DisableMutation)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path string
			if tt.configFile != "" {
				path = writeConfigFile(t, tt.configFile)
			}

			cfg, err := LoadAPIConfig(path, t.TempDir())
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestLoadAPIConfigFromEnv(t *testing.T) {
	t.Setenv("VARUS_LEDGER_DATABASE_HOST", "envhost")
	t.Setenv("VARUS_LEDGER_SERVER_PORT", "7070")
	t.Setenv("VARUS_LEDGER_LEDGER_SINK_ACCOUNT", "void")

	cfg, err := LoadAPIConfig("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "envhost", cfg.Database.Host)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "void", cfg.Ledger.SinkAccount)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		DBName:   "ledger",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=ledger sslmode=disable",
		cfg.DSN())
}
