// Package config provides configuration management for calbot
package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	return string(l)
}

// IsValid checks if the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// ActivityType is the verb shown in front of a presence activity.
type ActivityType string

const (
	ActivityPlaying   ActivityType = "playing"
	ActivityStreaming ActivityType = "streaming"
	ActivityListening ActivityType = "listening"
	ActivityWatching  ActivityType = "watching"
	ActivityCompeting ActivityType = "competing"
)

// IsValid checks if the activity type is known
func (t ActivityType) IsValid() bool {
	switch t {
	case ActivityPlaying, ActivityStreaming, ActivityListening, ActivityWatching, ActivityCompeting:
		return true
	default:
		return false
	}
}

// Config represents the complete calbot configuration
type Config struct {
	// Chat platform credentials and presence
	Discord DiscordConfig `yaml:"discord" json:"discord"`

	// Logging and command dispatch
	General GeneralConfig `yaml:"general" json:"general"`

	// Rendering service
	Render RenderConfig `yaml:"render" json:"render"`
}

// DiscordConfig contains the bot credentials
type DiscordConfig struct {
	// Bot token
	Token string `yaml:"token" json:"token"`

	// Application id
	AppID uint64 `yaml:"appid" json:"appid"`

	// Presence set once the gateway is ready
	Status Activity `yaml:"status" json:"status"`
}

// Activity is a presence entry.
type Activity struct {
	Name string       `yaml:"name" json:"name"`
	Type ActivityType `yaml:"type" json:"type"`
	URL  string       `yaml:"url,omitempty" json:"url,omitempty"`
}

// GeneralConfig contains logging and dispatch settings
type GeneralConfig struct {
	// Log level
	Log LogLevel `yaml:"log" json:"log"`

	// Log format (json, console)
	LogFormat string `yaml:"log_format" json:"log_format"`

	// Command prefix, matched case-insensitively
	Prefix string `yaml:"prefix" json:"prefix"`

	// Extra owner user ids on top of the application owners
	Owners []string `yaml:"owners,omitempty" json:"owners,omitempty"`
}

// RenderConfig contains layout settings
type RenderConfig struct {
	// Target line width in columns
	Width int `yaml:"width" json:"width"`
}

// DefaultStatus is the presence used when none is configured.
func DefaultStatus() Activity {
	return Activity{Name: "\U0001FA90✨", Type: ActivityPlaying}
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Discord: DiscordConfig{
			Status: DefaultStatus(),
		},
		General: GeneralConfig{
			Log:       LogLevelInfo,
			LogFormat: "console",
			Prefix:    "calbot:",
		},
		Render: RenderConfig{
			Width: 80,
		},
	}
}

// Validate validates everything but the credentials
func (c *Config) Validate() error {
	if !c.General.Log.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.General.Log)
	}
	switch c.General.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.General.LogFormat)
	}
	if strings.TrimSpace(c.General.Prefix) == "" {
		return ErrInvalidPrefix
	}
	if c.Render.Width <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWidth, c.Render.Width)
	}
	return c.Discord.Status.Validate()
}

// ValidateDiscord checks the credentials needed to connect.
func (c *Config) ValidateDiscord() error {
	if c.Discord.Token == "" {
		return ErrMissingToken
	}
	if c.Discord.AppID == 0 {
		return ErrMissingAppID
	}
	return nil
}

// Validate checks an activity.
func (a Activity) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidActivity)
	}
	if !a.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidActivity, a.Type)
	}
	return nil
}

// ParseActivity decodes a JSON activity such as
// {"name": "with types", "type": "playing"}.
func ParseActivity(data string) (Activity, error) {
	var a Activity
	dec := json.NewDecoder(strings.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return Activity{}, err
	}
	if a.Type == "" {
		a.Type = ActivityPlaying
	}
	a.Type = ActivityType(strings.ToLower(string(a.Type)))
	if err := a.Validate(); err != nil {
		return Activity{}, err
	}
	return a, nil
}

// IsOwner reports whether id is listed as an extra owner.
func (c *Config) IsOwner(id string) bool {
	for _, o := range c.General.Owners {
		if o == id {
			return true
		}
	}
	return false
}
