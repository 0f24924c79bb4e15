package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/tellows-fastagi/internal/config"
	"github.com/mikey/tellows-fastagi/internal/core"
	"github.com/mikey/tellows-fastagi/internal/di"
	"github.com/mikey/tellows-fastagi/internal/metrics"
	"github.com/mikey/tellows-fastagi/internal/ports"
	"go.uber.org/dig"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Process exit codes
const (
	exitOK           = 0
	exitFailure      = 1
	exitConfig       = 2
	exitAccountCheck = 3
)

func main() {
	configFile := flag.String("config", "", "Path to config file (searches the default paths if empty)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := runWithConfig(ctx, *configFile)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "tellows-fastagi: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// runWithConfig builds the container and runs until ctx is cancelled
func runWithConfig(ctx context.Context, configFile string) error {
	// Build the dependency injection container
	container, err := di.BuildContainer(configFile)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	// Run the application
	return container.Invoke(func(
		cfg *config.Config,
		logger *zap.Logger,
		callFilter ports.CallFilter,
		service *core.CallerCheckService,
		metricsServer *metrics.Server,
		cacheRepo core.CacheRepository,
	) error {
		return run(ctx, cfg, logger, callFilter, service, metricsServer, cacheRepo)
	})
}

// run verifies the tellows account, serves until ctx is cancelled and shuts
// everything down
func run(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	callFilter ports.CallFilter,
	service *core.CallerCheckService,
	metricsServer *metrics.Server,
	cacheRepo core.CacheRepository,
) error {
	defer logger.Sync()

	// No call is accepted before the credential is known to work
	if _, err := service.VerifyAccount(ctx); err != nil {
		logger.Error("tellows account check failed", zap.Error(err))
		return err
	}

	if err := metricsServer.Start(); err != nil {
		return fmt.Errorf("failed to start metrics endpoint: %w", err)
	}

	if err := callFilter.Start(); err != nil {
		logger.Error("Failed to start filter", zap.Error(err))
		_ = metricsServer.Stop(context.Background())
		return err
	}

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetServer().ShutdownTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(shutdownCtx)
	g.Go(func() error {
		if err := callFilter.Stop(); err != nil {
			return fmt.Errorf("failed to stop filter: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := metricsServer.Stop(gctx); err != nil {
			return fmt.Errorf("failed to stop metrics endpoint: %w", err)
		}
		return nil
	})
	err := g.Wait()
	if err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}

	// Stop the cache if needed
	if stopper, ok := cacheRepo.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return err
}

// exitCode maps a run error to the process exit code
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	cause := dig.RootCause(err)
	switch {
	case errors.Is(cause, config.ErrMissingOption), errors.Is(cause, config.ErrInvalidOption):
		return exitConfig
	case errors.Is(cause, core.ErrAccountCheck):
		return exitAccountCheck
	default:
		return exitFailure
	}
}
