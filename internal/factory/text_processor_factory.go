package factory

import (
	"github.com/mikey/tellows-fastagi/internal/callerid"
	"github.com/mikey/tellows-fastagi/internal/config"
	"github.com/mikey/tellows-fastagi/internal/core"
	"github.com/mikey/tellows-fastagi/internal/utils"
	"go.uber.org/zap"
)

// TextProcessorFactory creates text processors and the caller id normalizer
// built on them
type TextProcessorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTextProcessorFactory creates a new TextProcessorFactory
func NewTextProcessorFactory(cfg *config.Config, logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextProcessor creates a new TextProcessor
func (f *TextProcessorFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger)
}

// CreateNormalizer creates a caller id normalizer for the configured region
func (f *TextProcessorFactory) CreateNormalizer(textProcessor *utils.TextProcessor) core.Normalizer {
	region := f.cfg.GetPhone().DefaultRegion
	f.logger.Debug("Parsing caller ids", zap.String("default_region", region))
	return callerid.NewNormalizer(region, textProcessor)
}
