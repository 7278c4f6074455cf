package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/sentinelsec/sentinel/internal/adapters/events"
	"github.com/sentinelsec/sentinel/internal/adapters/smtpingest"
	"github.com/sentinelsec/sentinel/internal/api"
	"github.com/sentinelsec/sentinel/internal/config"
	"github.com/sentinelsec/sentinel/internal/core"
	"github.com/sentinelsec/sentinel/internal/factory"
	"github.com/sentinelsec/sentinel/internal/logging"
	"github.com/sentinelsec/sentinel/internal/ports"
)

// BuildAPIContainer creates and configures the dependency injection
// container for the API process
func BuildAPIContainer() (*dig.Container, error) {
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
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewQueueFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewEventsFactory); err != nil {
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
	if err := container.Provide(func(stores *factory.Stores) core.CampaignStore {
		return stores.Campaigns
	}); err != nil {
		return nil, err
	}

	// Register job queue
	if err := container.Provide(func(f *factory.QueueFactory) (core.JobQueue, error) {
		return f.CreateQueue()
	}); err != nil {
		return nil, err
	}

	// Register status event subscriber (nil when events are disabled)
	if err := container.Provide(func(f *factory.EventsFactory) (*events.RedisSubscriber, error) {
		return f.CreateSubscriber()
	}); err != nil {
		return nil, err
	}

	// Register broadcaster
	if err := container.Provide(api.NewBroadcaster); err != nil {
		return nil, err
	}

	// Register handlers
	if err := container.Provide(api.NewHandlers); err != nil {
		return nil, err
	}

	// Register server
	if err := container.Provide(func(handlers *api.Handlers, logger *zap.Logger, cfg *config.Config) *api.Server {
		return api.NewServer(handlers, logger, cfg.GetString("server.listen_address"))
	}); err != nil {
		return nil, err
	}

	// Register SMTP intake (nil when disabled)
	if err := container.Provide(func(
		cfg *config.Config,
		reports core.ReportStore,
		queue core.JobQueue,
		logger *zap.Logger,
	) ports.Intake {
		if !cfg.GetBool("smtp.enabled") {
			return nil
		}
		return smtpingest.NewListener(
			reports,
			queue,
			logger,
			cfg.GetString("smtp.listen_address"),
			cfg.GetString("smtp.domain"),
		)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
