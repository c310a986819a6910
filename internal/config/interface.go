package config

import (
	"time"

	"codeberg.org/mutker/fx5204ps/internal/errors"
)

var errEmptyPrefix = errors.New().WithMessage(errors.ErrInvalidArgument, "environment prefix must not be empty")

// Provider gives read access to the loaded configuration. Values do not
// change after Load returns.
type Provider interface {
	// GetInterval returns how often averages and line readings are refreshed
	GetInterval() time.Duration

	// GetReadTimeout returns the USB transfer timeout
	GetReadTimeout() time.Duration

	// GetRetryInitial and GetRetryMax bound the wait after failed polls
	GetRetryInitial() time.Duration
	GetRetryMax() time.Duration

	// GetReportInterval returns the period of logged readings in monitor mode
	GetReportInterval() time.Duration

	IsTemperatureEnabled() bool
	IsMonitorMode() bool
	IsSimulated() bool

	// GetLogLevel returns the configured logging level
	GetLogLevel() string

	// GetLogFile returns the rotated log file path, empty for console only
	GetLogFile() string

	// IsMetricsEnabled returns whether the Prometheus exporter is enabled
	IsMetricsEnabled() bool
	GetMetricsAddress() string
	GetMetricsPath() string
}

// Option defines a configuration option that can be passed to Load
type Option func(*options) error

// options holds internal configuration options
type options struct {
	configPath string
	envPrefix  string
	args       []string
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "FX5204PS"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		if prefix == "" {
			return errEmptyPrefix
		}
		o.envPrefix = prefix
		return nil
	}
}

// WithArgs replaces os.Args[1:] as the command line to parse
func WithArgs(args []string) Option {
	return func(o *options) error {
		o.args = args
		return nil
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}
