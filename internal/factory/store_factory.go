package factory

import (
	"fmt"

	"github.com/mikey/mail-triage/internal/adapters/store"
	"github.com/mikey/mail-triage/internal/config"
	"go.uber.org/zap"
)

// StoreFactory creates result and correction log backends based on configuration
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

// CreateStore creates the backend named by storage.type
func (f *StoreFactory) CreateStore() (store.Store, error) {
	storageCfg, err := f.cfg.GetStorage()
	if err != nil {
		return nil, err
	}

	switch storageCfg.Type {
	case "memory":
		f.logger.Warn("Using the in-memory store, results are lost when the process exits")
		return store.NewMemoryStore(f.logger, storageCfg.Retention, storageCfg.CleanupFrequency), nil
	case "sqlite":
		s, err := store.NewSQLiteStore(storageCfg.SQLitePath, f.logger, storageCfg.Retention, storageCfg.CleanupFrequency)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mysql":
		s, err := store.NewMySQLStore(storageCfg.MySQLDSN, f.logger, storageCfg.Retention, storageCfg.CleanupFrequency)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageCfg.Type)
	}
}
