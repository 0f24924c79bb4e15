package tellows

import (
	"net/http"

	"github.com/mikey/tellows-fastagi/internal/config"
	"github.com/mikey/tellows-fastagi/internal/core"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Factory creates new instances of Client
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for Client instances
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateReputationClient creates a new tellows client
func (f *Factory) CreateReputationClient() (core.ReputationClient, error) {
	tellowsCfg := f.cfg.GetTellows()

	var limiter *rate.Limiter
	if tellowsCfg.RateLimit > 0 {
		burst := tellowsCfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(tellowsCfg.RateLimit), burst)
		f.logger.Info("Rate limiting tellows requests",
			zap.Float64("requests_per_second", tellowsCfg.RateLimit),
			zap.Int("burst", burst))
	}

	return NewClient(
		&http.Client{Timeout: tellowsCfg.RequestTimeout},
		tellowsCfg.BaseURL,
		tellowsCfg.APIKeyMD5,
		limiter,
		f.logger,
	), nil
}
