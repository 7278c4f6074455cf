package di

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/sentinelsec/sentinel/internal/adapters/virustotal"
	"github.com/sentinelsec/sentinel/internal/config"
	"github.com/sentinelsec/sentinel/internal/core"
	"github.com/sentinelsec/sentinel/internal/factory"
	"github.com/sentinelsec/sentinel/internal/logging"
	"github.com/sentinelsec/sentinel/internal/utils"
	"github.com/sentinelsec/sentinel/internal/worker"
)

// BuildWorkerContainer creates and configures the dependency injection
// container for the analysis worker process
func BuildWorkerContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewQueueFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewEventsFactory); err != nil {
		return nil, err
	}

	// Register classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register stores
	if err := container.Provide(func(f *factory.StoreFactory) (*factory.Stores, error) {
		return f.CreateStores()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(stores *factory.Stores) core.ReportStore {
		return stores.Reports
	}); err != nil {
		return nil, err
	}

	// Register job queue
	if err := container.Provide(func(f *factory.QueueFactory) (core.JobQueue, error) {
		return f.CreateQueue()
	}); err != nil {
		return nil, err
	}

	// Register event publisher
	if err := container.Provide(func(f *factory.EventsFactory) (core.EventPublisher, error) {
		return f.CreatePublisher()
	}); err != nil {
		return nil, err
	}

	// Register reputation client
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.ReputationClient, error) {
		vtConfig := cfg.GetVirusTotal()
		timeout, err := time.ParseDuration(vtConfig.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid virustotal timeout: %w", err)
		}
		return virustotal.NewClient(vtConfig.Endpoint, vtConfig.APIKey, timeout, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register analysis service
	if err := container.Provide(func(
		store core.ReportStore,
		classifier core.Classifier,
		reputation core.ReputationClient,
		events core.EventPublisher,
		logger *zap.Logger,
		textProcessor *utils.TextProcessor,
		cfg *config.Config,
	) (*core.AnalysisService, error) {
		classifyTimeout, err := cfg.GetDuration("analysis.classify_timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid classify timeout: %w", err)
		}
		return core.NewAnalysisService(
			store,
			classifier,
			reputation,
			events,
			logger,
			textProcessor,
			cfg.GetInt("analysis.excerpt_size"),
			cfg.GetInt("analysis.max_indicators"),
			classifyTimeout,
		), nil
	}); err != nil {
		return nil, err
	}

	// Register worker metrics
	if err := container.Provide(func() *worker.Metrics {
		return worker.NewMetrics(prometheus.DefaultRegisterer)
	}); err != nil {
		return nil, err
	}

	// Register worker pool
	if err := container.Provide(func(
		queue core.JobQueue,
		service *core.AnalysisService,
		logger *zap.Logger,
		metrics *worker.Metrics,
		cfg *config.Config,
	) (*worker.Pool, error) {
		jobTimeout, err := cfg.GetDuration("worker.job_timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid worker job timeout: %w", err)
		}
		return worker.NewPool(
			queue,
			service,
			logger,
			metrics,
			cfg.GetInt("worker.pool_size"),
			jobTimeout,
		), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}
