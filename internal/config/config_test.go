package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100.0, cfg.Analytics.ContractMultiplier)
	assert.Equal(t, 200, cfg.Analytics.MaxPages)
	assert.Equal(t, 10*time.Second, cfg.Analytics.TagLookupTimeout.Duration)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "serve", cfg.Mode)
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "report"
log_level = "debug"

[analytics]
closed_page_size = 25
tag_lookup_timeout = "3s"

[label_store]
backend = "redis"

[report]
wallet = "0x56687bf447db6ffa42ffe2204a05edaa20f55839"
kind = "exposure"
`), 0o644))

	t.Setenv("POLYPORTFOLIO_REDIS_ADDR", "redis:6380")
	t.Setenv("POLYPORTFOLIO_ANALYTICS_LOOKUP_CONCURRENCY", "8")
	t.Setenv("POLYPORTFOLIO_ANALYTICS_PAGE_SIZE", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "report", cfg.Mode)
	assert.Equal(t, 25, cfg.Analytics.ClosedPageSize)
	assert.Equal(t, 500, cfg.Analytics.PageSize, "unparseable env values are ignored")
	assert.Equal(t, 3*time.Second, cfg.Analytics.TagLookupTimeout.Duration)
	assert.Equal(t, 8, cfg.Analytics.LookupConcurrency)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "exposure", cfg.Report.Kind)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = "), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "report"
	cfg.LogLevel = "loud"
	cfg.Analytics.ContractMultiplier = 0
	cfg.LabelStore.Backend = "etcd"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"log_level", "contract_multiplier", "label_store", "wallet is required"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidatePostgresOnlyWhenSelected(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Host = ""
	require.NoError(t, cfg.Validate())

	cfg.LabelStore.Backend = "postgres"
	assert.ErrorContains(t, cfg.Validate(), "postgres: host")

	cfg.Postgres.DSN = "postgres://localhost/db"
	assert.NoError(t, cfg.Validate())
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.Password = "hunter2"
	cfg.Server.APIKey = "key"
	cfg.S3.SecretKey = "secret"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Redis.Password)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Empty(t, out.S3.AccessKey, "empty values stay empty")
	assert.Equal(t, "hunter2", cfg.Redis.Password, "original untouched")

	out.Server.CORSOrigins[0] = "changed"
	assert.Equal(t, "*", cfg.Server.CORSOrigins[0])
}
