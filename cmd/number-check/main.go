package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mikey/tellows-fastagi/internal/config"
	"github.com/mikey/tellows-fastagi/internal/core"
	"github.com/mikey/tellows-fastagi/internal/di"
	"github.com/mikey/tellows-fastagi/internal/ports"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

const lookupTimeout = 30 * time.Second

// Process exit codes, aligned with the daemon where they overlap
const (
	exitOK      = 0
	exitFailure = 1
	exitConfig  = 2
)

func main() {
	flags, err := di.ParseFlags(os.Args[0], os.Args[1:])
	if err != nil {
		os.Exit(exitConfig)
	}
	if len(flags.Numbers) == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <caller id>...\n", os.Args[0])
		os.Exit(exitConfig)
	}

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(exitFailure)
	}

	if err := container.Invoke(func(
		logger *zap.Logger,
		callFilter ports.CallFilter,
		cacheRepo core.CacheRepository,
	) error {
		return run(logger, callFilter, cacheRepo, flags.Numbers)
	}); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a run error to the process exit code
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	cause := dig.RootCause(err)
	if errors.Is(cause, config.ErrMissingOption) || errors.Is(cause, config.ErrInvalidOption) {
		return exitConfig
	}
	return exitFailure
}

// run checks every caller id and fails if any remote lookup failed
func run(logger *zap.Logger, callFilter ports.CallFilter, cacheRepo core.CacheRepository, numbers []string) error {
	defer logger.Sync()

	// Stop the cache if needed
	if stopper, ok := cacheRepo.(interface{ Stop() }); ok {
		defer stopper.Stop()
	}

	var failed int
	for _, number := range numbers {
		ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
		_, err := callFilter.CheckCaller(ctx, number)
		cancel()
		if err != nil {
			logger.Debug("Lookup failed", zap.String("caller_id", number), zap.Error(err))
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d lookups failed", failed, len(numbers))
	}
	return nil
}
