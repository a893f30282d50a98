package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phish-detect/internal/app"
	"github.com/mikey/phish-detect/internal/config"
	"github.com/mikey/phish-detect/internal/core"
	"github.com/mikey/phish-detect/internal/factory"
	"github.com/mikey/phish-detect/internal/logging"
	"github.com/mikey/phish-detect/internal/metrics"
	"github.com/mikey/phish-detect/internal/ports"
	"github.com/mikey/phish-detect/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer(configFile string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.New(configFile)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}
	return container, nil
}

// providePipeline registers everything below the configuration and the
// logger
func providePipeline(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewHostFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewPipelineFactory); err != nil {
		return err
	}

	// Register blocklist store
	if err := container.Provide(func(f *factory.StoreFactory) (ports.KeyValueStore, error) {
		return f.CreateStore(context.Background())
	}); err != nil {
		return err
	}

	// Register classification client
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.ClassificationClient, error) {
		return f.CreateClassifier()
	}); err != nil {
		return err
	}

	// Register document host
	if err := container.Provide(func(f *factory.HostFactory) (ports.Host, error) {
		return f.CreateHost()
	}); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.PipelineFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register pipeline components
	if err := container.Provide(func(f *factory.PipelineFactory, text *utils.TextProcessor) (core.Extractor, error) {
		return f.CreateExtractor(text)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.PipelineFactory) (core.Annotator, error) {
		return f.CreateAnnotator()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.PipelineFactory) (core.KeyFunc, error) {
		return f.CreateKeyFunc()
	}); err != nil {
		return err
	}

	// Register metrics
	if err := container.Provide(metrics.NewPipeline); err != nil {
		return err
	}

	// Register application
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		host ports.Host,
		store ports.KeyValueStore,
		classifier core.ClassificationClient,
		extractor core.Extractor,
		annotator core.Annotator,
		key core.KeyFunc,
		m *metrics.Pipeline,
	) (*app.App, error) {
		p := app.Params{
			Host:        host,
			Store:       store,
			Classifier:  classifier,
			Extractor:   extractor,
			Annotator:   annotator,
			Key:         key,
			Watcher:     cfg.GetWatcher(),
			MaxInFlight: cfg.GetInt("pipeline.max_in_flight"),
			Logger:      logger,
		}
		if cfg.GetMetrics().Enabled {
			p.Recorder = m
		}
		return app.New(p)
	}); err != nil {
		return err
	}

	return nil
}
