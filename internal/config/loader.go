package config

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/leadsync/leadsync/internal/errors"
	"github.com/leadsync/leadsync/internal/logging"
)

// Loader handles configuration loading and hot-reloading.
type Loader struct {
	path     string
	mu       sync.RWMutex
	config   *Config
	onChange func(*Config)
	watcher  *fsnotify.Watcher
	logger   *logging.Logger
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewLoader creates a new configuration loader.
func NewLoader(path string) *Loader {
	return &Loader{
		path:     path,
		logger:   logging.NewLogger(),
		stopChan: make(chan struct{}),
	}
}

// Load reads the configuration from the file.
func (l *Loader) Load() (*Config, error) {
	content, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.ErrConfigNotFound{Path: l.path}
		}
		return nil, &errors.ErrFileRead{Path: l.path, Err: err}
	}

	content = substituteEnvVars(content)
	config, err := Parse(content)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.config = config
	l.mu.Unlock()

	return config, nil
}

// Get returns the current configuration.
func (l *Loader) Get() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// SetOnChange sets a callback to be called when configuration changes.
func (l *Loader) SetOnChange(fn func(*Config)) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// StartWatcher watches the config file and reloads it on change.
// Reload errors keep the previous configuration in place.
func (l *Loader) StartWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(l.path); err != nil {
		watcher.Close()
		return err
	}
	l.watcher = watcher

	go func() {
		for {
			select {
			case <-l.stopChan:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					l.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn("config watcher error", "error", err.Error())
			}
		}
	}()

	return nil
}

// StopWatcher stops the file watcher.
func (l *Loader) StopWatcher() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
		if l.watcher != nil {
			l.watcher.Close()
		}
	})
}

func (l *Loader) reload() {
	config, err := l.Load()
	if err != nil {
		l.logger.Error("config reload failed", "path", l.path, "error", err.Error())
		return
	}

	l.mu.RLock()
	onChange := l.onChange
	l.mu.RUnlock()

	l.logger.Info("configuration reloaded", "path", l.path)
	if onChange != nil {
		onChange(config)
	}
}

// Parse parses configuration from a byte slice, applying defaults
// and validating the result.
func Parse(data []byte) (*Config, error) {
	var config Config

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, &errors.ErrConfigParse{Err: err}
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, &errors.ErrConfigValidation{Err: err}
	}

	return &config, nil
}

// LoadFromEnv loads configuration using path from environment variable or default.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("LEADSYNC_CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	loader := NewLoader(path)
	return loader.Load()
}

func substituteEnvVars(content []byte) []byte {
	return []byte(os.ExpandEnv(string(content)))
}
