package factory

import (
	"fmt"

	"github.com/mikey/tellows-fastagi/internal/adapters/cache"
	"github.com/mikey/tellows-fastagi/internal/config"
	"github.com/mikey/tellows-fastagi/internal/core"
	"go.uber.org/zap"
)

// CacheFactory creates cache repositories based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCacheRepository creates a cache repository based on the
// configuration. It returns nil when the cache tier is not configured.
func (f *CacheFactory) CreateCacheRepository() (core.CacheRepository, error) {
	cacheCfg := f.cfg.GetCache()
	if !f.IsCacheEnabled() {
		f.logger.Info("No cache configured, every caller is checked against tellows",
			zap.String("type", cacheCfg.Type))
		return nil, nil
	}

	f.logger.Info("Using cache", zap.String("type", cacheCfg.Type))

	switch cacheCfg.Type {
	case "redis":
		return cache.NewRedisCache(cache.RedisOptions{
			Addr:        cacheCfg.RedisAddress(),
			Password:    cacheCfg.RedisPassword,
			DB:          cacheCfg.RedisDB,
			DialTimeout: cacheCfg.Timeout,
		}, f.logger), nil
	case "sqlite":
		return cache.NewSQLiteCache(cacheCfg.SQLitePath, f.logger)
	case "mysql":
		return cache.NewMySQLCache(cacheCfg.MySQLDSN, f.logger)
	case "memory":
		return cache.NewMemoryCache(cacheCfg.Numbers, f.logger), nil
	default:
		return nil, fmt.Errorf("%w: unsupported cache type: %s", config.ErrInvalidOption, cacheCfg.Type)
	}
}

// IsCacheEnabled returns whether the cache tier is configured
func (f *CacheFactory) IsCacheEnabled() bool {
	return f.cfg.GetCache().Enabled()
}
