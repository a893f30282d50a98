package factory

import (
	"github.com/mikey/phish-detect/internal/adapters/classifier"
	"github.com/mikey/phish-detect/internal/config"
	"github.com/mikey/phish-detect/internal/core"
	"go.uber.org/zap"
)

// ClassifierFactory creates classification clients
type ClassifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier creates an HTTP client for the configured backend
func (f *ClassifierFactory) CreateClassifier() (core.ClassificationClient, error) {
	clsCfg, err := f.cfg.GetClassifier()
	if err != nil {
		return nil, err
	}

	client, err := classifier.NewHTTPClient(clsCfg.BackendURL, clsCfg.Options, f.logger)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Using classification service",
		zap.String("endpoint", client.Endpoint()),
		zap.Float64("rate_limit", clsCfg.Options.RateLimit))
	return client, nil
}
