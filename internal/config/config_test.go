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
	t.Setenv("TELLOWS_AGI_TELLOWS_API_KEY_MD5", "0123456789abcdef")
	t.Setenv("TELLOWS_AGI_SERVER_HOST", "127.0.0.1")
	t.Setenv("TELLOWS_AGI_SERVER_PORT", "4573")
	t.Setenv("TELLOWS_AGI_SERVER_TIMEOUT", "5")
}

func TestNew_FromEnvironment(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := New()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	server := cfg.GetServer()
	assert.Equal(t, "127.0.0.1", server.Host)
	assert.Equal(t, 4573, server.Port)
	assert.Equal(t, 5*time.Second, server.Timeout)
	assert.Equal(t, 10*time.Second, server.ShutdownTimeout)
	assert.Equal(t, "127.0.0.1:4573", server.ListenAddress())

	tellows := cfg.GetTellows()
	assert.Equal(t, "0123456789abcdef", tellows.APIKeyMD5)
	assert.Equal(t, "https://www.tellows.de", tellows.BaseURL)

	assert.Equal(t, "DE", cfg.GetPhone().DefaultRegion)
	assert.False(t, cfg.GetCache().Enabled())
}

func TestNew_LegacyEnvironment(t *testing.T) {
	t.Setenv("APIKEYMD5", "legacykey")
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "4574")
	t.Setenv("TIMEOUT", "7")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")

	cfg, err := New()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "legacykey", cfg.GetTellows().APIKeyMD5)
	assert.Equal(t, "0.0.0.0:4574", cfg.GetServer().ListenAddress())
	assert.Equal(t, 7*time.Second, cfg.GetServer().Timeout)

	cache := cfg.GetCache()
	assert.True(t, cache.Enabled())
	assert.Equal(t, "redis:6379", cache.RedisAddress())
}

func TestValidate_MissingOptions(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{name: "credential", unset: "TELLOWS_AGI_TELLOWS_API_KEY_MD5"},
		{name: "host", unset: "TELLOWS_AGI_SERVER_HOST"},
		{name: "port", unset: "TELLOWS_AGI_SERVER_PORT"},
		{name: "timeout", unset: "TELLOWS_AGI_SERVER_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			cfg, err := New()
			require.NoError(t, err)
			assert.ErrorIs(t, cfg.Validate(), ErrMissingOption)
		})
	}
}

func TestValidate_InvalidOptions(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "timeout", key: "TELLOWS_AGI_SERVER_TIMEOUT", value: "soon"},
		{name: "port range", key: "TELLOWS_AGI_SERVER_PORT", value: "70000"},
		{name: "cache type", key: "TELLOWS_AGI_CACHE_TYPE", value: "memcached"},
		{name: "region", key: "TELLOWS_AGI_PHONE_DEFAULT_REGION", value: "GER"},
		{name: "metrics address", key: "TELLOWS_AGI_METRICS_LISTEN_ADDRESS", value: "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := New()
			require.NoError(t, err)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidOption)
		})
	}
}

func TestValidateLookup_IgnoresServerSection(t *testing.T) {
	t.Setenv("TELLOWS_AGI_TELLOWS_API_KEY_MD5", "0123456789abcdef")

	cfg, err := New()
	require.NoError(t, err)
	assert.NoError(t, cfg.ValidateLookup())
	assert.ErrorIs(t, cfg.Validate(), ErrMissingOption)
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
tellows:
  api_key_md5: filekey
server:
  host: 127.0.0.1
  port: 4573
  timeout: 5s
cache:
  type: memory
  numbers:
    - "+4916362096"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewWithFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "filekey", cfg.GetTellows().APIKeyMD5)
	assert.Equal(t, 5*time.Second, cfg.GetServer().Timeout)

	cache := cfg.GetCache()
	assert.Equal(t, "memory", cache.Type)
	assert.True(t, cache.Enabled())
	assert.Equal(t, []string{"+4916362096"}, cache.Numbers)
}

func TestNewWithFile_Missing(t *testing.T) {
	_, err := NewWithFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestCacheConfig_Enabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  CacheConfig
		want bool
	}{
		{name: "redis complete", cfg: CacheConfig{Type: "redis", RedisHost: "localhost", RedisPort: 6379}, want: true},
		{name: "redis host only", cfg: CacheConfig{Type: "redis", RedisHost: "localhost"}, want: false},
		{name: "redis port only", cfg: CacheConfig{Type: "redis", RedisPort: 6379}, want: false},
		{name: "sqlite", cfg: CacheConfig{Type: "sqlite", SQLitePath: "/data/whitelist.db"}, want: true},
		{name: "mysql without dsn", cfg: CacheConfig{Type: "mysql"}, want: false},
		{name: "memory empty", cfg: CacheConfig{Type: "memory"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Enabled())
		})
	}
}
