package factory

import (
	"fmt"

	"github.com/sentinelsec/sentinel/internal/adapters/store"
	"github.com/sentinelsec/sentinel/internal/config"
	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

// Stores bundles the two persistence surfaces. Every backend implements
// both, so a single factory call wires the whole persistence layer.
type Stores struct {
	Reports   core.ReportStore
	Campaigns core.CampaignStore
}

// StoreFactory creates persistence backends
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStores creates the report and campaign stores based on the
// configured backend type
func (f *StoreFactory) CreateStores() (*Stores, error) {
	storeType := f.cfg.GetString("store.type")

	switch storeType {
	case "postgres":
		s, err := store.NewPostgresStore(f.cfg.GetString("store.postgres_dsn"), f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres store: %w", err)
		}
		return &Stores{Reports: s, Campaigns: s}, nil
	case "sqlite":
		s, err := store.NewSQLiteStore(f.cfg.GetString("store.sqlite_path"), f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite store: %w", err)
		}
		return &Stores{Reports: s, Campaigns: s}, nil
	case "mysql":
		s, err := store.NewMySQLStore(f.cfg.GetString("store.mysql_dsn"), f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create mysql store: %w", err)
		}
		return &Stores{Reports: s, Campaigns: s}, nil
	case "memory":
		s := store.NewMemoryStore(f.logger)
		return &Stores{Reports: s, Campaigns: s}, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}
