package di

import (
	"io"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/tellows-fastagi/internal/adapters/tellows"
	"github.com/mikey/tellows-fastagi/internal/config"
	"github.com/mikey/tellows-fastagi/internal/core"
	"github.com/mikey/tellows-fastagi/internal/factory"
	"github.com/mikey/tellows-fastagi/internal/logging"
	"github.com/mikey/tellows-fastagi/internal/metrics"
	"github.com/mikey/tellows-fastagi/internal/ports"
	"github.com/mikey/tellows-fastagi/internal/utils"
)

// BuildContainer creates and configures a dependency injection container for
// the FastAGI daemon. configFile may be empty to search the default paths.
func BuildContainer(configFile string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration, refusing to start with missing or invalid options
	if err := container.Provide(func() (*config.Config, error) {
		cfg, err := config.NewWithFile(configFile)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}

	// Register metrics endpoint
	if err := container.Provide(func(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *metrics.Server {
		return metrics.NewServer(m, cfg.GetMetrics().ListenAddress, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCommon registers everything shared by the daemon and the cli. It
// expects *config.Config and *zap.Logger to be provided already.
func provideCommon(container *dig.Container) error {
	// Register metrics
	if err := container.Provide(metrics.New); err != nil {
		return err
	}

	// Register cli output
	if err := container.Provide(func() io.Writer { return os.Stdout }); err != nil {
		return err
	}

	// Register factories
	if err := container.Provide(tellows.NewFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register caller id normalizer
	if err := container.Provide(func(f *factory.TextProcessorFactory, tp *utils.TextProcessor) core.Normalizer {
		return f.CreateNormalizer(tp)
	}); err != nil {
		return err
	}

	// Register tellows client
	if err := container.Provide(func(f *tellows.Factory) (core.ReputationClient, error) {
		return f.CreateReputationClient()
	}); err != nil {
		return err
	}

	// Register cache repository, nil when no cache is configured
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository()
	}); err != nil {
		return err
	}

	// Register caller check service
	if err := container.Provide(core.NewCallerCheckService); err != nil {
		return err
	}

	// Register call filter
	if err := container.Provide(func(f *factory.FilterFactory) (ports.CallFilter, error) {
		return f.CreateCallFilter()
	}); err != nil {
		return err
	}

	return nil
}
