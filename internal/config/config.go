package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/fx5204ps/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix      = "FX5204PS"
	DefaultConfigName     = "fx5204ps"
	DefaultConfigDir      = "/etc"
	DefaultInterval       = 5
	DefaultReadTimeout    = 1000
	DefaultRetryInitial   = 100
	DefaultRetryMax       = 5000
	DefaultReportInterval = 1
	DefaultLogLevel       = string(LogLevelInfo)
	DefaultMetricsAddress = ":9524"
	DefaultMetricsPath    = "/metrics"
)

type Config struct {
	Interval       int    `mapstructure:"interval"`
	ReadTimeout    int    `mapstructure:"read_timeout"`
	RetryInitial   int    `mapstructure:"retry_initial"`
	RetryMax       int    `mapstructure:"retry_max"`
	Temperature    bool   `mapstructure:"temperature"`
	ReportInterval int    `mapstructure:"report_interval"`
	Monitor        bool   `mapstructure:"monitor"`
	Simulate       bool   `mapstructure:"simulate"`
	LogLevel       string `mapstructure:"log_level"`
	LogFile        string `mapstructure:"log_file"`
	Metrics        bool   `mapstructure:"metrics"`
	MetricsAddress string `mapstructure:"metrics_address"`
	MetricsPath    string `mapstructure:"metrics_path"`
}

var _ Provider = (*Config)(nil)

// flag name -> config key
var flagKeys = map[string]string{
	"interval":        "interval",
	"read-timeout":    "read_timeout",
	"retry-initial":   "retry_initial",
	"retry-max":       "retry_max",
	"temperature":     "temperature",
	"report-interval": "report_interval",
	"monitor":         "monitor",
	"simulate":        "simulate",
	"log-level":       "log_level",
	"log-file":        "log_file",
	"metrics":         "metrics",
	"metrics-address": "metrics_address",
	"metrics-path":    "metrics_path",
}

// Load reads the configuration from defaults, the TOML config file, the
// environment and command line flags, in increasing order of precedence.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		envPrefix: DefaultEnvPrefix,
		args:      os.Args[1:],
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, o); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("read_timeout", DefaultReadTimeout)
	v.SetDefault("retry_initial", DefaultRetryInitial)
	v.SetDefault("retry_max", DefaultRetryMax)
	v.SetDefault("temperature", false)
	v.SetDefault("report_interval", DefaultReportInterval)
	v.SetDefault("monitor", false)
	v.SetDefault("simulate", false)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("metrics", false)
	v.SetDefault("metrics_address", DefaultMetricsAddress)
	v.SetDefault("metrics_path", DefaultMetricsPath)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(DefaultConfigName, pflag.ContinueOnError)

	fs.Int("interval", DefaultInterval, "Seconds between average, frequency and voltage refreshes")
	fs.Int("read-timeout", DefaultReadTimeout, "USB transfer timeout in milliseconds")
	fs.Int("retry-initial", DefaultRetryInitial, "Initial wait after a failed poll in milliseconds")
	fs.Int("retry-max", DefaultRetryMax, "Maximum wait between failed polls in milliseconds")
	fs.Bool("temperature", false, "Poll the device temperature at each refresh")
	fs.Int("report-interval", DefaultReportInterval, "Seconds between logged readings in monitor mode")
	fs.Bool("monitor", false, "Log readings periodically")
	fs.Bool("simulate", false, "Use a simulated device instead of USB")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("log-file", "", "Also write JSON logs to this file, rotated")
	fs.Bool("metrics", false, "Serve Prometheus metrics")
	fs.String("metrics-address", DefaultMetricsAddress, "Metrics listen address")
	fs.String("metrics-path", DefaultMetricsPath, "Metrics scrape path")

	return fs
}

// readConfigFile loads an explicit file when one is configured, otherwise
// looks for fx5204ps.toml in /etc. Only the implicit file may be absent.
func readConfigFile(v *viper.Viper, o *options) error {
	errFactory := errors.New()

	path := o.configPath
	if path == "" {
		path = os.Getenv(o.envPrefix + "_CONFIG")
	}

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
		return nil
	}

	v.SetConfigName(DefaultConfigName)
	v.AddConfigPath(DefaultConfigDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.ReportInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.ReportInterval)
	}
	if c.ReadTimeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "read_timeout must be positive")
	}
	if c.RetryInitial <= 0 || c.RetryMax < c.RetryInitial {
		return errFactory.WithData(errors.ErrInvalidConfig, "retry_max must be at least retry_initial")
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.Metrics && (c.MetricsAddress == "" || !strings.HasPrefix(c.MetricsPath, "/")) {
		return errFactory.WithData(errors.ErrInvalidConfig, "metrics_path must start with /")
	}

	return nil
}

func (c *Config) GetInterval() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Millisecond
}

func (c *Config) GetRetryInitial() time.Duration {
	return time.Duration(c.RetryInitial) * time.Millisecond
}

func (c *Config) GetRetryMax() time.Duration {
	return time.Duration(c.RetryMax) * time.Millisecond
}

func (c *Config) GetReportInterval() time.Duration {
	return time.Duration(c.ReportInterval) * time.Second
}

func (c *Config) IsTemperatureEnabled() bool {
	return c.Temperature
}

func (c *Config) IsMonitorMode() bool {
	return c.Monitor
}

func (c *Config) IsSimulated() bool {
	return c.Simulate
}

func (c *Config) GetLogLevel() string {
	return c.LogLevel
}

func (c *Config) GetLogFile() string {
	return c.LogFile
}

func (c *Config) IsMetricsEnabled() bool {
	return c.Metrics
}

func (c *Config) GetMetricsAddress() string {
	return c.MetricsAddress
}

func (c *Config) GetMetricsPath() string {
	return c.MetricsPath
}
