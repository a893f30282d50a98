package factory

import (
	"github.com/mikey/phish-detect/internal/annotate"
	"github.com/mikey/phish-detect/internal/config"
	"github.com/mikey/phish-detect/internal/core"
	"github.com/mikey/phish-detect/internal/dedup"
	"github.com/mikey/phish-detect/internal/extraction"
	"github.com/mikey/phish-detect/internal/utils"
	"go.uber.org/zap"
)

// PipelineFactory creates the in-process pipeline components
type PipelineFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewPipelineFactory creates a new pipeline factory
func NewPipelineFactory(cfg *config.Config, logger *zap.Logger) *PipelineFactory {
	return &PipelineFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextProcessor creates a new TextProcessor
func (f *PipelineFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger)
}

// CreateExtractor creates the selector based extraction adapter
func (f *PipelineFactory) CreateExtractor(text *utils.TextProcessor) (core.Extractor, error) {
	selectors, maxBodySize := f.cfg.GetExtraction()
	return extraction.NewAdapter(selectors, maxBodySize, text)
}

// CreateAnnotator creates the banner renderer
func (f *PipelineFactory) CreateAnnotator() (core.Annotator, error) {
	return annotate.NewRenderer(f.cfg.GetString("annotation.header_selector"))
}

// CreateKeyFunc creates the message identity function
func (f *PipelineFactory) CreateKeyFunc() (core.KeyFunc, error) {
	dCfg := f.cfg.GetDedup()
	f.logger.Debug("Using dedup key strategy", zap.String("strategy", dCfg.Strategy))
	return dedup.KeyFuncFor(dCfg.Strategy, dCfg.IDAttributes)
}
