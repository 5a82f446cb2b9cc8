// Package config provides configuration watching and hot-reload functionality
package config

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/calypso-lang/calypso-bot/watch"
)

// ConfigChangeCallback is called when configuration changes
type ConfigChangeCallback func(oldConfig, newConfig *Config)

// Watcher reloads a configuration file whenever it changes on disk.
// A reload that fails to parse or validate keeps the previous configuration.
type Watcher struct {
	configFile string
	loader     *Loader
	logger     *zap.Logger
	file       *watch.Watcher

	// Current configuration
	config   *Config
	configMu sync.RWMutex

	// Event callbacks
	callbacks   []ConfigChangeCallback
	callbacksMu sync.RWMutex
}

// NewWatcher loads configFile and starts watching it.
func NewWatcher(configFile string, loader *Loader, logger *zap.Logger, opts ...watch.Option) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	config, err := loader.LoadFromFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	file, err := watch.New(configFile, append([]watch.Option{watch.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		configFile: configFile,
		loader:     loader,
		logger:     logger,
		file:       file,
		config:     config,
	}, nil
}

// Run reloads on every settled change until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	return w.file.Run(ctx, func() {
		if err := w.Reload(); err != nil {
			w.logger.Warn("failed to reload config", zap.String("file", w.configFile), zap.Error(err))
		}
	})
}

// Close stops watching the configuration file
func (w *Watcher) Close() error {
	return w.file.Close()
}

// Current returns the current configuration
func (w *Watcher) Current() *Config {
	w.configMu.RLock()
	defer w.configMu.RUnlock()
	return w.config
}

// OnConfigChange registers a callback for configuration changes
func (w *Watcher) OnConfigChange(callback ConfigChangeCallback) {
	w.callbacksMu.Lock()
	defer w.callbacksMu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Reload reloads the configuration from file and notifies callbacks.
func (w *Watcher) Reload() error {
	newConfig, err := w.loader.LoadFromFile(w.configFile)
	if err != nil {
		return err
	}

	w.configMu.Lock()
	oldConfig := w.config
	w.config = newConfig
	w.configMu.Unlock()

	w.notifyCallbacks(oldConfig, newConfig)

	w.logger.Info("configuration reloaded", zap.String("file", w.configFile))
	return nil
}

// notifyCallbacks runs callbacks in registration order.
func (w *Watcher) notifyCallbacks(oldConfig, newConfig *Config) {
	w.callbacksMu.RLock()
	callbacks := make([]ConfigChangeCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.callbacksMu.RUnlock()

	for _, callback := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("config change callback panicked", zap.Any("panic", r))
				}
			}()
			callback(oldConfig, newConfig)
		}()
	}
}
