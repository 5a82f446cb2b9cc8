// Package config provides error definitions for configuration management
package config

import "errors"

// Configuration validation errors
var (
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrInvalidPrefix    = errors.New("invalid command prefix")
	ErrInvalidWidth     = errors.New("invalid render width")
	ErrInvalidActivity  = errors.New("invalid activity")
	ErrMissingToken     = errors.New("missing discord token")
	ErrMissingAppID     = errors.New("missing discord application id")
)

// Configuration loading errors
var (
	ErrConfigFileNotFound  = errors.New("configuration file not found")
	ErrConfigParseError    = errors.New("configuration parse error")
	ErrConfigValidateError = errors.New("configuration validation error")
	ErrEnvironmentVarError = errors.New("environment variable error")
)
