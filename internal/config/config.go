// Package config loads the application's configuration with Viper. Settings
// come from an optional YAML file, FEEDVET_* environment variables, and
// built-in defaults, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved application configuration.
type Config struct {
	Verify  VerifyConfig  `mapstructure:"verify"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// VerifyConfig controls the verification run itself.
type VerifyConfig struct {
	// Workers is the size of the probe worker pool.
	Workers int `mapstructure:"workers"`
	// ProbeTimeoutSeconds bounds one fetch-classify-parse cycle.
	ProbeTimeoutSeconds int `mapstructure:"probe_timeout_seconds"`
	// MaxTitles caps how many titles are kept per valid feed.
	MaxTitles int `mapstructure:"max_titles"`
	// HostRPS throttles requests per host; zero disables throttling.
	HostRPS float64 `mapstructure:"host_rps"`
	// HostBurst is the per-host token bucket size when HostRPS is set.
	HostBurst int `mapstructure:"host_burst"`
	// Output is the path the result JSON is written to.
	Output string `mapstructure:"output"`
}

// HTTPConfig controls the underlying fetch transport.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// AuditConfig holds the post-run sanity-check thresholds.
type AuditConfig struct {
	MinTitleLength int `mapstructure:"min_title_length"`
	MinFeedTitles  int `mapstructure:"min_feed_titles"`
}

// LoggingConfig selects the logger profile.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig controls the optional metrics listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// ProbeTimeout returns the per-probe deadline as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Verify.ProbeTimeoutSeconds) * time.Second
}

// HTTPTimeout returns the transport timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("verify.workers", 10)
	v.SetDefault("verify.probe_timeout_seconds", 5)
	v.SetDefault("verify.max_titles", 5)
	v.SetDefault("verify.host_rps", 0.0)
	v.SetDefault("verify.host_burst", 1)
	v.SetDefault("verify.output", "rss_data.json")

	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.user_agent", "feedvet/0.1 (+https://github.com/newsdesk/feedvet)")

	v.SetDefault("audit.min_title_length", 10)
	v.SetDefault("audit.min_feed_titles", 3)

	v.SetDefault("logging.development", true)
	v.SetDefault("metrics.addr", "")
}

// Load resolves the configuration. If path is non-empty that file is used and
// must exist; otherwise a config.yaml is searched for in the working directory
// and /etc/feedvet, and its absence is fine.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FEEDVET") // e.g. FEEDVET_VERIFY_WORKERS=32
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/feedvet/")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the scheduler cannot run with.
func (c *Config) Validate() error {
	if c.Verify.Workers <= 0 {
		return fmt.Errorf("verify.workers must be positive, got %d", c.Verify.Workers)
	}
	if c.Verify.ProbeTimeoutSeconds <= 0 {
		return fmt.Errorf("verify.probe_timeout_seconds must be positive, got %d", c.Verify.ProbeTimeoutSeconds)
	}
	if c.Verify.MaxTitles <= 0 {
		return fmt.Errorf("verify.max_titles must be positive, got %d", c.Verify.MaxTitles)
	}
	if c.Verify.HostRPS < 0 {
		return fmt.Errorf("verify.host_rps must not be negative, got %g", c.Verify.HostRPS)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be positive, got %d", c.HTTP.TimeoutSeconds)
	}
	if c.Audit.MinTitleLength <= 0 || c.Audit.MinFeedTitles <= 0 {
		return fmt.Errorf("audit thresholds must be positive")
	}
	return nil
}
