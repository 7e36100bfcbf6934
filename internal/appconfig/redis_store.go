// internal/appconfig/redis_store.go
package appconfig

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"go.uber.org/zap"
)

// RedisStore keeps each app config in a hash at <prefix><name>, with the set
// of names in <prefix>index.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisStore connects to cfg.Addr and verifies the connection.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "droidpilot:apps:"
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &RedisStore{client: client, keyPrefix: prefix, logger: logger.Named("appconfig_redis")}, nil
}

func (s *RedisStore) appKey(name string) string { return s.keyPrefix + "app:" + name }

func (s *RedisStore) indexKey() string { return s.keyPrefix + "index" }

// Get returns the config stored under name.
func (s *RedisStore) Get(ctx context.Context, name string) (AppConfig, error) {
	name, err := normalize(name)
	if err != nil {
		return AppConfig{}, err
	}
	fields, err := s.client.HGetAll(ctx, s.appKey(name)).Result()
	if err != nil {
		return AppConfig{}, fmt.Errorf("failed to read app config %s: %w", name, err)
	}
	if len(fields) == 0 {
		return AppConfig{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return AppConfig{Package: fields["package"], Component: fields["component"]}, nil
}

// Put stores cfg under name.
func (s *RedisStore) Put(ctx context.Context, name string, cfg AppConfig) error {
	name, err := normalize(name)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.appKey(name), "package", cfg.Package, "component", cfg.Component)
	pipe.SAdd(ctx, s.indexKey(), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store app config %s: %w", name, err)
	}
	s.logger.Info("App config saved", zap.String("app", name), zap.String("component", cfg.Component))
	return nil
}

// List returns every indexed config. Index entries whose hash vanished are skipped.
func (s *RedisStore) List(ctx context.Context) (map[string]AppConfig, error) {
	names, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list app configs: %w", err)
	}
	out := make(map[string]AppConfig, len(names))
	for _, name := range names {
		cfg, err := s.Get(ctx, name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[name] = cfg
	}
	return out, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
