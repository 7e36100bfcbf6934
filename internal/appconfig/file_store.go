// internal/appconfig/file_store.go
package appconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FileStore keeps app configs in a YAML file. The whole file is rewritten
// atomically on every Put.
type FileStore struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	configs map[string]AppConfig

	watcher  *fsnotify.Watcher
	wg       sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}
}

// NewFileStore loads path, creating it with the default configs when absent.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		logger: logger.Named("appconfig"),
		done:   make(chan struct{}),
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		s.configs = Defaults()
		if err := s.persist(s.configs); err != nil {
			return nil, err
		}
		s.logger.Info("Created app config file with defaults", zap.String("path", path), zap.Int("apps", len(s.configs)))
		return s, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat app config file: %w", err)
	}

	configs, err := readFile(path)
	if err != nil {
		return nil, err
	}
	s.configs = configs
	return s, nil
}

func readFile(path string) (map[string]AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read app config file: %w", err)
	}
	configs := make(map[string]AppConfig)
	if err := yaml.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse app config file %s: %w", path, err)
	}
	if configs == nil {
		configs = make(map[string]AppConfig)
	}
	return configs, nil
}

// persist writes configs to a temp file in the same directory and renames it over the target.
func (s *FileStore) persist(configs map[string]AppConfig) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create app config directory: %w", err)
	}
	data, err := yaml.Marshal(configs)
	if err != nil {
		return fmt.Errorf("failed to encode app configs: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".app_packages-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace app config file: %w", err)
	}
	return nil
}

// Get returns the config stored under name.
func (s *FileStore) Get(_ context.Context, name string) (AppConfig, error) {
	name, err := normalize(name)
	if err != nil {
		return AppConfig{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[name]
	if !ok {
		return AppConfig{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return cfg, nil
}

// Put stores cfg under name and rewrites the file.
func (s *FileStore) Put(_ context.Context, name string, cfg AppConfig) error {
	name, err := normalize(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]AppConfig, len(s.configs)+1)
	for k, v := range s.configs {
		next[k] = v
	}
	next[name] = cfg
	if err := s.persist(next); err != nil {
		return err
	}
	s.configs = next
	s.logger.Info("App config saved", zap.String("app", name), zap.String("component", cfg.Component))
	return nil
}

// List returns a copy of every stored config.
func (s *FileStore) List(_ context.Context) (map[string]AppConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]AppConfig, len(s.configs))
	for k, v := range s.configs {
		out[k] = v
	}
	return out, nil
}

// Watch reloads the file whenever it changes on disk until ctx is done or
// Close is called. The parent directory is watched so atomic renames are seen.
func (s *FileStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}
	s.watcher = w

	s.wg.Add(1)
	go s.processEvents(ctx)
	return nil
}

func (s *FileStore) processEvents(ctx context.Context) {
	defer s.wg.Done()
	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.reload()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("App config watcher error", zap.Error(err))
		}
	}
}

func (s *FileStore) reload() {
	configs, err := readFile(s.path)
	if err != nil {
		// Partial writes from other editors show up here; keep the last good state.
		s.logger.Debug("Skipping app config reload", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.configs = configs
	s.mu.Unlock()
	s.logger.Debug("App configs reloaded", zap.Int("apps", len(configs)))
}

// Close stops the watcher, if any.
func (s *FileStore) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)
		if s.watcher != nil {
			err = s.watcher.Close()
		}
		s.wg.Wait()
	})
	return err
}
