package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache looks numbers up in a redis instance maintained by an external
// administration process
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// RedisOptions holds the connection settings for RedisCache
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// NewRedisCache creates a new redis cache. An unreachable server is logged but
// not fatal, lookups degrade to the remote tier until it comes back.
func NewRedisCache(opts RedisOptions, logger *zap.Logger) *RedisCache {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.DialTimeout,
		WriteTimeout: opts.DialTimeout,
		MaxRetries:   -1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis not reachable at startup", zap.String("addr", opts.Addr), zap.Error(err))
	} else {
		logger.Info("Redis cache initialized", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	}

	return &RedisCache{
		client: client,
		logger: logger,
	}
}

// Contains reports whether the number is stored with a non-empty value
func (c *RedisCache) Contains(ctx context.Context, number string) (bool, error) {
	value, err := c.client.Get(ctx, number).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	return value != "", nil
}

// Stop closes the redis client
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close redis client", zap.Error(err))
	}
}
