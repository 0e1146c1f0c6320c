package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr_grpc":      "www.example:9000",
		"database_dsn":            "vault.db",
		"secret_key":              "my_secret_key",
		"token_validity_duration": "2h",
		"s3_bucket":               "bucket",
		"storage_backend":         "memory",
		"root_container":          "containers/top",
		"root_container_name":     "Members",
		"ignored_identities":      []string{"bot@x.com"},
		"operator_email":          "ops@x.com",
		"heavy_storage_bytes":     2048,
		"pass_budget":             "2m",
		"pass_interval":           float64(time.Minute),
		"lock_wait":               "10s",
		"log_format":              "console",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrGRPC)
		assert.Equal(t, "vault.db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 2*time.Hour, cfg.TokenValidityDuration)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, BackendMemory, cfg.StorageBackend)
		assert.Equal(t, "containers/top", cfg.RootContainer)
		assert.Equal(t, "Members", cfg.RootContainerName)
		assert.Equal(t, []string{"bot@x.com"}, cfg.IgnoredIdentities)
		assert.Equal(t, "ops@x.com", cfg.OperatorEmail)
		assert.Equal(t, int64(2048), cfg.HeavyStorageBytes)
		assert.Equal(t, 2*time.Minute, cfg.PassBudget)
		assert.Equal(t, time.Minute, cfg.PassInterval)
		assert.Equal(t, 10*time.Second, cfg.LockWait)
		assert.Equal(t, LogFormatConsole, cfg.LogFormat)

		// absent fields keep their defaults
		assert.Equal(t, ":9100", cfg.MetricsAddr)
		assert.Equal(t, "inbox", cfg.InboxPrefix)
		assert.Equal(t, "us-east-1", cfg.S3Region)
	})

	t.Run("no config flag leaves config unchanged", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{}
		cfg.LoadDefaults()
		want := *cfg
		parseJson(cfg)

		assert.Equal(t, want, *cfg)
	})

	t.Run("short flag", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", pathFlag}

		cfg := &Config{}
		parseJson(cfg)
		assert.Equal(t, "vault.db", cfg.DatabaseDSN)
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
