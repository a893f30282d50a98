package factory

import (
	"fmt"

	"github.com/mikey/phish-detect/internal/adapters/host"
	"github.com/mikey/phish-detect/internal/config"
	"github.com/mikey/phish-detect/internal/ports"
	"go.uber.org/zap"
)

// HostFactory creates document hosts based on configuration
type HostFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHostFactory creates a new host factory
func NewHostFactory(cfg *config.Config, logger *zap.Logger) *HostFactory {
	return &HostFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateHost creates the configured host
func (f *HostFactory) CreateHost() (ports.Host, error) {
	hostCfg, err := f.cfg.GetHost()
	if err != nil {
		return nil, err
	}

	switch hostCfg.Type {
	case "browser":
		return host.NewBrowserHost(hostCfg.Browser, f.logger)
	case "file":
		return host.NewFileHost(hostCfg.File, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported host type: %s", hostCfg.Type)
	}
}
