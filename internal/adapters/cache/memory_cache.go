package cache

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// MemoryCache is a static, configuration supplied list of known numbers
type MemoryCache struct {
	numbers map[string]struct{}
	logger  *zap.Logger
}

// NewMemoryCache creates a new in-memory cache holding the given canonical numbers
func NewMemoryCache(numbers []string, logger *zap.Logger) *MemoryCache {
	set := make(map[string]struct{}, len(numbers))
	for _, number := range numbers {
		number = strings.TrimSpace(number)
		if number != "" {
			set[number] = struct{}{}
		}
	}

	logger.Info("Initialized in-memory number list", zap.Int("numbers", len(set)))

	return &MemoryCache{
		numbers: set,
		logger:  logger,
	}
}

// Contains reports whether the number is in the list
func (c *MemoryCache) Contains(ctx context.Context, number string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := c.numbers[number]
	return ok, nil
}
