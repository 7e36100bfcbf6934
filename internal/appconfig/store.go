// internal/appconfig/store.go
package appconfig

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xkilldash9x/droidpilot/internal/config"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no launch config exists for an app name.
var ErrNotFound = errors.New("app config not found")

// AppConfig is the persisted launch target of an app, keyed by display name.
type AppConfig struct {
	Package   string `yaml:"package" json:"package"`
	Component string `yaml:"component" json:"component"`
}

// Valid reports whether the config carries enough to launch anything.
func (c AppConfig) Valid() bool {
	return c.Package != "" || c.Component != ""
}

// Store persists app display name to launch config mappings.
type Store interface {
	Get(ctx context.Context, name string) (AppConfig, error)
	Put(ctx context.Context, name string, cfg AppConfig) error
	List(ctx context.Context) (map[string]AppConfig, error)
	Close() error
}

// Defaults are written when a new file store is created.
func Defaults() map[string]AppConfig {
	return map[string]AppConfig{
		"盒马": {Package: "com.whaleshark.meteora", Component: "com.whaleshark.meteora/.MainActivity"},
		"微信": {Package: "com.tencent.mm", Component: "com.tencent.mm/.ui.LauncherUI"},
	}
}

// Names returns the keys of configs in sorted order.
func Names(configs map[string]AppConfig) []string {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("app name must not be empty")
	}
	return name, nil
}

// New builds the store selected by cfg.
func New(ctx context.Context, cfg config.AppStoreConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Type {
	case config.AppStoreFile, "":
		path, err := config.ExpandPath(cfg.Path)
		if err != nil {
			return nil, err
		}
		fs, err := NewFileStore(path, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Watch {
			if err := fs.Watch(ctx); err != nil {
				logger.Warn("App config file watch unavailable, continuing without reload", zap.Error(err))
			}
		}
		return fs, nil
	case config.AppStorePostgres:
		return OpenPostgres(ctx, cfg.Postgres, logger)
	case config.AppStoreRedis:
		return NewRedisStore(ctx, cfg.Redis, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported app store configured: '%s'. Supported: [file, postgres, redis]", cfg.Type)
	}
}
