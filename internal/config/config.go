package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "TELLOWS_AGI"

var (
	// ErrMissingOption is returned when a mandatory option is not set
	ErrMissingOption = errors.New("missing config option")
	// ErrInvalidOption is returned when an option cannot be used
	ErrInvalidOption = errors.New("invalid config option")
)

// legacyEnv maps keys to the variable names used by existing deployments
var legacyEnv = map[string]string{
	"tellows.api_key_md5": "APIKEYMD5",
	"server.host":         "HOST",
	"server.port":         "PORT",
	"server.timeout":      "TIMEOUT",
	"cache.redis.host":    "REDIS_HOST",
	"cache.redis.port":    "REDIS_PORT",
}

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance from the environment, an optional
// .env file and the first config.yaml found in the search path
func New() (*Config, error) {
	return NewWithFile("")
}

// NewWithFile is like New but reads the given config file instead of searching
func NewWithFile(path string) (*Config, error) {
	// A missing .env file is not an error
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/tellows-fastagi/")
		v.AddConfigPath("$HOME/.tellows-fastagi")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrInvalidOption, err)
		}
		// Config file not found, environment only
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func bindLegacyEnv(v *viper.Viper) error {
	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// setDefaults sets the default configuration values. Credential, host, port
// and timeout have no defaults on purpose, they must be configured.
func setDefaults(v *viper.Viper) {
	// tellows defaults
	v.SetDefault("tellows.base_url", "https://www.tellows.de")
	v.SetDefault("tellows.request_timeout", "10s")
	v.SetDefault("tellows.rate_limit", 0)
	v.SetDefault("tellows.burst", 1)

	// Server defaults
	v.SetDefault("server.filter_type", "fastagi")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Cache defaults
	v.SetDefault("cache.type", "redis")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.timeout", "1s")
	v.SetDefault("cache.numbers", []string{})

	// Phone number defaults
	v.SetDefault("phone.default_region", "DE")

	// Metrics defaults
	v.SetDefault("metrics.listen_address", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration. Bare integers are
// seconds, as in the TIMEOUT variable of existing deployments.
func (c *Config) GetDuration(key string) (time.Duration, error) {
	raw := strings.TrimSpace(c.GetString(key))
	if raw == "" {
		return 0, nil
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return time.ParseDuration(raw)
}

// IsSet reports whether a key has a value from any source
func (c *Config) IsSet(key string) bool {
	return c.v.IsSet(key)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
