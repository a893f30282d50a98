package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/phish-detect/internal/adapters/store"
	"github.com/mikey/phish-detect/internal/blocklist"
	"github.com/mikey/phish-detect/internal/config"
	"github.com/mikey/phish-detect/internal/ports"
	"go.uber.org/zap"
)

// StoreFactory creates blocklist stores based on configuration
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

// CreateStore creates the configured store and merges the seed addresses
// into it
func (f *StoreFactory) CreateStore(ctx context.Context) (ports.KeyValueStore, error) {
	blCfg := f.cfg.GetBlocklist()

	s, err := f.open(ctx, blCfg)
	if err != nil {
		return nil, err
	}

	if err := blocklist.Seed(ctx, s, blCfg.Seed); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to seed blocklist: %w", err)
	}
	f.logger.Info("Initialized blocklist store",
		zap.String("type", blCfg.Type),
		zap.Int("seeded", len(blCfg.Seed)))
	return s, nil
}

func (f *StoreFactory) open(ctx context.Context, blCfg config.BlocklistConfig) (ports.KeyValueStore, error) {
	switch blCfg.Type {
	case "memory":
		return store.NewMemoryStore(f.logger), nil
	case "file":
		if err := ensureDir(blCfg.FilePath); err != nil {
			return nil, err
		}
		return store.NewFileStore(blCfg.FilePath, f.logger)
	case "sqlite":
		if err := ensureDir(blCfg.SQLitePath); err != nil {
			return nil, err
		}
		return store.NewSQLiteStore(blCfg.SQLitePath, f.logger)
	case "mysql":
		return store.NewMySQLStore(blCfg.MySQLDSN, f.logger)
	case "redis":
		return store.NewRedisStore(ctx, blCfg.Redis, f.logger)
	default:
		return nil, fmt.Errorf("unsupported blocklist store type: %s", blCfg.Type)
	}
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return nil
}
