// Package config provides configuration loading and parsing functionality
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFormat represents the configuration file format
type ConfigFormat string

const (
	FormatYAML ConfigFormat = "yaml"
	FormatJSON ConfigFormat = "json"
)

// Loader handles configuration loading from various sources
type Loader struct {
	// Configuration search paths
	searchPaths []string

	// Environment variable prefix
	envPrefix string

	// Default configuration
	defaultConfig *Config

	// Environment lookup, os.LookupEnv unless overridden
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	paths := []string{
		".",
		"./config",
		"/etc/calbot",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".calbot"))
	}
	return &Loader{
		searchPaths:   paths,
		envPrefix:     "CALBOT",
		defaultConfig: DefaultConfig(),
		lookupEnv:     os.LookupEnv,
	}
}

// SetSearchPaths sets the configuration file search paths
func (l *Loader) SetSearchPaths(paths []string) *Loader {
	l.searchPaths = paths
	return l
}

// SetEnvPrefix sets the environment variable prefix
func (l *Loader) SetEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// SetDefaultConfig sets the default configuration
func (l *Loader) SetDefaultConfig(config *Config) *Loader {
	l.defaultConfig = config
	return l
}

// SetLookupEnv replaces the environment lookup
func (l *Loader) SetLookupEnv(lookup func(string) (string, bool)) *Loader {
	l.lookupEnv = lookup
	return l
}

func (l *Loader) defaults() *Config {
	if l.defaultConfig == nil {
		return DefaultConfig()
	}
	c := *l.defaultConfig
	c.General.Owners = append([]string(nil), l.defaultConfig.General.Owners...)
	return &c
}

// Load loads configuration from filename, or discovers a file in the search
// paths when filename is empty.
func (l *Loader) Load(filename string) (*Config, error) {
	if filename != "" {
		return l.LoadFromFile(filename)
	}
	return l.AutoLoad()
}

// LoadFromFile loads configuration from a specific file
func (l *Loader) LoadFromFile(filename string) (*Config, error) {
	format, err := formatOf(filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, filename)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return l.finish(data, format)
}

// LoadFromReader loads configuration from an io.Reader
func (l *Loader) LoadFromReader(reader io.Reader, format ConfigFormat) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration data: %w", err)
	}
	return l.finish(data, format)
}

// AutoLoad automatically discovers and loads configuration
func (l *Loader) AutoLoad() (*Config, error) {
	configFile, format, err := l.findConfigFile()
	if errors.Is(err, ErrConfigFileNotFound) {
		config := l.defaults()
		if err := l.loadFromEnv(config); err != nil {
			return nil, fmt.Errorf("failed to load config from environment: %w", err)
		}
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigValidateError, err)
		}
		return config, nil
	}
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}
	config, err := l.finish(data, format)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", configFile, err)
	}
	return config, nil
}

// finish parses data, merges it over the defaults, applies environment
// overrides and validates the result.
func (l *Loader) finish(data []byte, format ConfigFormat) (*Config, error) {
	userConfig, err := l.parseConfig(data, format)
	if err != nil {
		return nil, err
	}

	config := l.mergeConfig(l.defaults(), userConfig)

	if err := l.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigValidateError, err)
	}
	return config, nil
}

func formatOf(filename string) (ConfigFormat, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported config file format: %s", ext)
	}
}

// findConfigFile searches for configuration files in search paths
func (l *Loader) findConfigFile() (string, ConfigFormat, error) {
	filenames := []string{
		"calbot.yaml", "calbot.yml",
		"config.yaml", "config.yml",
		"calbot.json", "config.json",
	}

	for _, searchPath := range l.searchPaths {
		for _, filename := range filenames {
			fullPath := filepath.Join(searchPath, filename)
			if _, err := os.Stat(fullPath); err == nil {
				format, err := formatOf(filename)
				if err != nil {
					continue
				}
				return fullPath, format, nil
			}
		}
	}

	return "", "", ErrConfigFileNotFound
}

// parseConfig parses configuration data based on format
func (l *Loader) parseConfig(data []byte, format ConfigFormat) (*Config, error) {
	config := &Config{}

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: yaml: %w", ErrConfigParseError, err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: json: %w", ErrConfigParseError, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}

	return config, nil
}

// loadFromEnv loads configuration overrides from environment variables
func (l *Loader) loadFromEnv(config *Config) error {
	get := func(key string) (string, bool) {
		val, ok := l.lookupEnv(l.envPrefix + "_" + key)
		return val, ok && val != ""
	}

	if val, ok := get("DISCORD_TOKEN"); ok {
		config.Discord.Token = val
	}
	if val, ok := get("DISCORD_APPID"); ok {
		id, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s_DISCORD_APPID: %w", ErrEnvironmentVarError, l.envPrefix, err)
		}
		config.Discord.AppID = id
	}

	if val, ok := get("LOG_LEVEL"); ok {
		config.General.Log = LogLevel(strings.ToLower(val))
	}
	if val, ok := get("LOG_FORMAT"); ok {
		config.General.LogFormat = strings.ToLower(val)
	}
	if val, ok := get("PREFIX"); ok {
		config.General.Prefix = val
	}
	if val, ok := get("OWNERS"); ok {
		config.General.Owners = strings.FieldsFunc(val, func(r rune) bool { return r == ',' || r == ' ' })
	}

	if val, ok := get("RENDER_WIDTH"); ok {
		width, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%w: %s_RENDER_WIDTH: %w", ErrEnvironmentVarError, l.envPrefix, err)
		}
		config.Render.Width = width
	}

	return nil
}

// mergeConfig merges user config with default config
func (l *Loader) mergeConfig(defaultConfig, userConfig *Config) *Config {
	merged := *defaultConfig

	// Discord config
	if userConfig.Discord.Token != "" {
		merged.Discord.Token = userConfig.Discord.Token
	}
	if userConfig.Discord.AppID != 0 {
		merged.Discord.AppID = userConfig.Discord.AppID
	}
	if userConfig.Discord.Status.Name != "" {
		merged.Discord.Status = userConfig.Discord.Status
		if merged.Discord.Status.Type == "" {
			merged.Discord.Status.Type = ActivityPlaying
		}
	}

	// General config
	if userConfig.General.Log != "" {
		merged.General.Log = userConfig.General.Log
	}
	if userConfig.General.LogFormat != "" {
		merged.General.LogFormat = userConfig.General.LogFormat
	}
	if userConfig.General.Prefix != "" {
		merged.General.Prefix = userConfig.General.Prefix
	}
	if userConfig.General.Owners != nil {
		merged.General.Owners = userConfig.General.Owners
	}

	// Render config
	if userConfig.Render.Width != 0 {
		merged.Render.Width = userConfig.Render.Width
	}

	return &merged
}
