package config

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ServerConfig represents the FastAGI listener configuration
type ServerConfig struct {
	FilterType      string        `key:"server.filter_type" validate:"oneof=fastagi cli"`
	Host            string        `key:"server.host" validate:"required"`
	Port            int           `key:"server.port" validate:"required,min=1,max=65535"`
	Timeout         time.Duration `key:"server.timeout" validate:"required,gt=0"`
	ShutdownTimeout time.Duration `key:"server.shutdown_timeout" validate:"gte=0"`
}

// ListenAddress returns host:port
func (s ServerConfig) ListenAddress() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// TellowsConfig represents the configuration for the tellows API
type TellowsConfig struct {
	APIKeyMD5      string        `key:"tellows.api_key_md5" validate:"required"`
	BaseURL        string        `key:"tellows.base_url" validate:"required,url"`
	RequestTimeout time.Duration `key:"tellows.request_timeout" validate:"gt=0"`
	RateLimit      float64       `key:"tellows.rate_limit" validate:"gte=0"`
	Burst          int           `key:"tellows.burst" validate:"gte=0"`
}

// CacheConfig represents the configuration for the cache tier
type CacheConfig struct {
	Type          string        `key:"cache.type" validate:"oneof=redis sqlite mysql memory"`
	RedisHost     string        `key:"cache.redis.host"`
	RedisPort     int           `key:"cache.redis.port" validate:"min=0,max=65535"`
	RedisPassword string        `key:"cache.redis.password"`
	RedisDB       int           `key:"cache.redis.db" validate:"gte=0"`
	SQLitePath    string        `key:"cache.sqlite_path"`
	MySQLDSN      string        `key:"cache.mysql_dsn"`
	Numbers       []string      `key:"cache.numbers"`
	Timeout       time.Duration `key:"cache.timeout" validate:"gt=0"`
}

// Enabled reports whether the configured backend has enough settings to be used
func (c CacheConfig) Enabled() bool {
	switch c.Type {
	case "redis":
		return c.RedisHost != "" && c.RedisPort != 0
	case "sqlite":
		return c.SQLitePath != ""
	case "mysql":
		return c.MySQLDSN != ""
	case "memory":
		return len(c.Numbers) > 0
	default:
		return false
	}
}

// RedisAddress returns host:port of the redis server
func (c CacheConfig) RedisAddress() string {
	return net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort))
}

// PhoneConfig represents the caller id parsing configuration
type PhoneConfig struct {
	DefaultRegion string `key:"phone.default_region" validate:"len=2,alpha"`
}

// MetricsConfig represents the configuration for the metrics endpoint
type MetricsConfig struct {
	ListenAddress string `key:"metrics.listen_address" validate:"omitempty,hostname_port"`
}

// durationKeys are parsed with GetDuration and checked before validation
var durationKeys = []string{
	"server.timeout",
	"server.shutdown_timeout",
	"tellows.request_timeout",
	"cache.timeout",
}

// GetServer returns the listener configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		FilterType:      c.GetString("server.filter_type"),
		Host:            c.GetString("server.host"),
		Port:            c.GetInt("server.port"),
		Timeout:         c.duration("server.timeout"),
		ShutdownTimeout: c.duration("server.shutdown_timeout"),
	}
}

// GetTellows returns the tellows configuration
func (c *Config) GetTellows() TellowsConfig {
	return TellowsConfig{
		APIKeyMD5:      c.GetString("tellows.api_key_md5"),
		BaseURL:        strings.TrimRight(c.GetString("tellows.base_url"), "/"),
		RequestTimeout: c.duration("tellows.request_timeout"),
		RateLimit:      c.GetFloat64("tellows.rate_limit"),
		Burst:          c.GetInt("tellows.burst"),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Type:          strings.ToLower(c.GetString("cache.type")),
		RedisHost:     c.GetString("cache.redis.host"),
		RedisPort:     c.GetInt("cache.redis.port"),
		RedisPassword: c.GetString("cache.redis.password"),
		RedisDB:       c.GetInt("cache.redis.db"),
		SQLitePath:    c.GetString("cache.sqlite_path"),
		MySQLDSN:      c.GetString("cache.mysql_dsn"),
		Numbers:       c.GetStringSlice("cache.numbers"),
		Timeout:       c.duration("cache.timeout"),
	}
}

// GetPhone returns the caller id parsing configuration
func (c *Config) GetPhone() PhoneConfig {
	return PhoneConfig{
		DefaultRegion: strings.ToUpper(c.GetString("phone.default_region")),
	}
}

// GetMetrics returns the metrics configuration
func (c *Config) GetMetrics() MetricsConfig {
	return MetricsConfig{
		ListenAddress: c.GetString("metrics.listen_address"),
	}
}

// duration ignores parse errors, Validate reports them
func (c *Config) duration(key string) time.Duration {
	d, _ := c.GetDuration(key)
	return d
}

// Validate checks every section needed to run the FastAGI daemon
func (c *Config) Validate() error {
	return c.validate(c.GetServer(), c.GetTellows(), c.GetCache(), c.GetPhone(), c.GetMetrics())
}

// ValidateLookup checks the sections needed for one-off lookups
func (c *Config) ValidateLookup() error {
	return c.validate(c.GetTellows(), c.GetCache(), c.GetPhone())
}

func (c *Config) validate(sections ...any) error {
	for _, key := range durationKeys {
		if _, err := c.GetDuration(key); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidOption, key, err)
		}
	}

	validate := newValidator()

	var missing, invalid []string
	for _, section := range sections {
		err := validate.Struct(section)
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalidOption, err)
		}
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				missing = append(missing, fe.Field())
			} else {
				invalid = append(invalid, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingOption, strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOption, strings.Join(invalid, ", "))
	}
	return nil
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		if key := field.Tag.Get("key"); key != "" {
			return key
		}
		return field.Name
	})
	return validate
}
