package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
database:
  postgres:
    host: localhost
    database: franchisee_hub
    user: hub
auth:
  jwt_secret: 0123456789abcdef0123456789abcdef
  credential_key: 0123456789abcdef0123456789abcdef
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "log", cfg.Notifications.Provider)
	assert.Equal(t, 5000, cfg.Notifications.AwaitTimeout)
	assert.Equal(t, "UTC", cfg.Ledger.Timezone)
	assert.Equal(t, "@every 15m", cfg.Reconcile.Schedule)
	assert.Equal(t, "franchise_applicants", cfg.Database.Elasticsearch.Index)
	assert.Equal(t, 8, cfg.Auth.MinPassword)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("HUB_TEST_DB_HOST", "db.internal")

	body := `
database:
  postgres:
    host: ${HUB_TEST_DB_HOST}
    database: franchisee_hub
    user: hub
auth:
  jwt_secret: 0123456789abcdef0123456789abcdef
  credential_key: k
`
	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{
			name:   "missing postgres host",
			body:   "auth:\n  jwt_secret: 0123456789abcdef0123456789abcdef\n  credential_key: k\n",
			errMsg: "database.postgres.host is required",
		},
		{
			name:   "short jwt secret",
			body:   "database:\n  postgres:\n    host: h\n    database: d\n    user: u\nauth:\n  jwt_secret: short\n  credential_key: k\n",
			errMsg: "auth.jwt_secret must be at least 32 characters",
		},
		{
			name:   "unknown provider",
			body:   minimalYAML + "notifications:\n  provider: pigeon\n",
			errMsg: `notifications.provider "pigeon" is not supported`,
		},
		{
			name:   "smtp without host",
			body:   minimalYAML + "notifications:\n  provider: smtp\n",
			errMsg: "integrations.smtp.host is required",
		},
		{
			name:   "redis enabled without address",
			body:   "database:\n  postgres:\n    host: h\n    database: d\n    user: u\n  redis:\n    enabled: true\nauth:\n  jwt_secret: 0123456789abcdef0123456789abcdef\n  credential_key: k\n",
			errMsg: "database.redis.address is required",
		},
		{
			name:   "bad timezone",
			body:   minimalYAML + "ledger:\n  timezone: Mars/Olympus\n",
			errMsg: "ledger.timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, GetDuration(5000))
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{"known": {Enabled: false, Timeout: 10}}}

	assert.False(t, GetWorkerConfig(cfg, "known").Enabled)
	fallback := GetWorkerConfig(cfg, "unknown")
	assert.True(t, fallback.Enabled)
	assert.Equal(t, 30000, fallback.Timeout)
}
