// Package config provides configuration loading and management for learndot-sync.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultRetryWait is the default wait between remote API retry attempts
	DefaultRetryWait = 5 * time.Second

	// DefaultRetryMaxAttempts is the default number of remote API attempts
	DefaultRetryMaxAttempts = 10

	// DefaultRequestTimeout is the default timeout for a single HTTP request
	DefaultRequestTimeout = 10 * time.Second

	// DefaultCacheTTL is the default lifetime of contact/enrolment cache entries
	DefaultCacheTTL = 5 * time.Minute
)

// EnvAPIKey is the environment variable consulted when the API key is not
// present in the configuration file.
const EnvAPIKey = "LEARNDOT_API_KEY"

// Option defines the interface for configuration loader options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Learndot  LearndotConfig  `yaml:"learndot"`
	Cache     CacheConfig     `yaml:"cache,omitempty"`
	StatusLog StatusLogConfig `yaml:"statusLog"`
	Mappings  MappingsConfig  `yaml:"mappings"`
	Grades    GradesConfig    `yaml:"grades,omitempty"`
}

// LearndotConfig defines the connection settings for the Learndot v2 API
type LearndotConfig struct {
	// BaseURL is the base URL of the Learndot instance, without the API path
	BaseURL string `yaml:"baseUrl"`

	// APIKey is the TrainingRocket-Authorization credential. When empty, the
	// LEARNDOT_API_KEY environment variable is used instead.
	APIKey string `yaml:"apiKey,omitempty"`

	// RequestTimeout bounds a single HTTP request (e.g. "10s")
	RequestTimeout string `yaml:"requestTimeout,omitempty"`

	// RetryWait is the fixed wait between retry attempts (e.g. "5s")
	RetryWait string `yaml:"retryWait,omitempty"`

	// RetryMaxAttempts is the total number of attempts before giving up
	RetryMaxAttempts int `yaml:"retryMaxAttempts,omitempty"`
}

// CacheConfig defines the lifetime of contact/enrolment lookup cache entries
type CacheConfig struct {
	// TTL is the cache entry lifetime (e.g. "5m"). Entries are never
	// explicitly invalidated; staleness is bounded only by this value.
	TTL string `yaml:"ttl,omitempty"`
}

// StatusLogConfig defines where the enrolment status log is persisted
type StatusLogConfig struct {
	// Path is the status log JSON file location
	Path string `yaml:"path"`
}

// MappingsConfig defines where course-to-component mappings are read from
type MappingsConfig struct {
	// Path is the mappings YAML file location
	Path string `yaml:"path"`
}

// GradesConfig defines where the batch command reads grade records from
type GradesConfig struct {
	// Path is the grade records JSON file location
	Path string `yaml:"path,omitempty"`
}

// ConfigLoader handles loading configuration with options
//
//nolint:revive // This name is fine
type ConfigLoader struct {
	options []Option
}

// NewConfigLoader creates a new configuration loader
func NewConfigLoader(options ...Option) *ConfigLoader {
	return &ConfigLoader{options: options}
}

// LoadConfig loads configuration using the configured options
func (l *ConfigLoader) LoadConfig() (*Config, error) {
	lc := &loaderConfig{}
	for _, opt := range l.options {
		if err := opt(lc); err != nil {
			return nil, err
		}
	}

	if lc.path == "" {
		return nil, fmt.Errorf("no configuration source specified")
	}

	// #nosec G304 -- path validated by WithConfigPath
	data, err := os.ReadFile(lc.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Learndot.APIKey == "" {
		cfg.Learndot.APIKey = os.Getenv(EnvAPIKey)
	}

	return &cfg, nil
}

// Validate checks the configuration for correctness
func (c *Config) Validate() error {
	if c.Learndot.BaseURL == "" {
		return fmt.Errorf("learndot.baseUrl is required")
	}
	u, err := url.Parse(c.Learndot.BaseURL)
	if err != nil {
		return fmt.Errorf("learndot.baseUrl is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("learndot.baseUrl must use http or https, got %q", u.Scheme)
	}

	if c.Learndot.APIKey == "" {
		return fmt.Errorf("learndot.apiKey is required (or set %s)", EnvAPIKey)
	}

	for _, d := range []struct {
		name  string
		value string
	}{
		{"learndot.requestTimeout", c.Learndot.RequestTimeout},
		{"learndot.retryWait", c.Learndot.RetryWait},
		{"cache.ttl", c.Cache.TTL},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("%s is not a valid duration: %w", d.name, err)
		}
	}

	if c.Learndot.RetryMaxAttempts < 0 {
		return fmt.Errorf("learndot.retryMaxAttempts must not be negative")
	}

	if c.StatusLog.Path == "" {
		return fmt.Errorf("statusLog.path is required")
	}
	if c.Mappings.Path == "" {
		return fmt.Errorf("mappings.path is required")
	}

	return nil
}

// GetRequestTimeout returns the configured request timeout or the default
func (c *Config) GetRequestTimeout() time.Duration {
	return durationOrDefault(c.Learndot.RequestTimeout, DefaultRequestTimeout)
}

// GetRetryWait returns the configured retry wait or the default
func (c *Config) GetRetryWait() time.Duration {
	return durationOrDefault(c.Learndot.RetryWait, DefaultRetryWait)
}

// GetRetryMaxAttempts returns the configured attempt limit or the default
func (c *Config) GetRetryMaxAttempts() int {
	if c.Learndot.RetryMaxAttempts == 0 {
		return DefaultRetryMaxAttempts
	}
	return c.Learndot.RetryMaxAttempts
}

// GetCacheTTL returns the configured cache TTL or the default
func (c *Config) GetCacheTTL() time.Duration {
	return durationOrDefault(c.Cache.TTL, DefaultCacheTTL)
}

func durationOrDefault(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}
