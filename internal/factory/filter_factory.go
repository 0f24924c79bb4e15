package factory

import (
	"fmt"
	"io"

	"github.com/mikey/tellows-fastagi/internal/adapters/filter"
	"github.com/mikey/tellows-fastagi/internal/config"
	"github.com/mikey/tellows-fastagi/internal/core"
	"github.com/mikey/tellows-fastagi/internal/metrics"
	"github.com/mikey/tellows-fastagi/internal/ports"
	"go.uber.org/zap"
)

// FilterFactory creates call filters based on configuration
type FilterFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.CallerCheckService
	metrics *metrics.Metrics
	out     io.Writer
}

// NewFilterFactory creates a new filter factory. out receives the output of
// the cli filter.
func NewFilterFactory(
	cfg *config.Config,
	logger *zap.Logger,
	service *core.CallerCheckService,
	m *metrics.Metrics,
	out io.Writer,
) *FilterFactory {
	return &FilterFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
		metrics: m,
		out:     out,
	}
}

// CreateCallFilter creates a call filter based on the configuration
func (f *FilterFactory) CreateCallFilter() (ports.CallFilter, error) {
	server := f.cfg.GetServer()

	switch server.FilterType {
	case "fastagi":
		return filter.NewFastAGIFilter(
			f.service,
			f.logger,
			f.metrics,
			server.ListenAddress(),
			server.Timeout,
			server.ShutdownTimeout,
		), nil
	case "cli":
		return filter.NewCliFilter(
			f.service,
			f.logger,
			f.out,
			f.cfg.GetBool("cli.verbose"),
		)
	default:
		return nil, fmt.Errorf("%w: unsupported filter type: %s", config.ErrInvalidOption, server.FilterType)
	}
}
