// Package config provides configuration management for fetchurl.
// It loads and validates the YAML settings file that controls transfer
// timeouts, concurrency, body limits, host access rules and log output, and
// turns those settings into the options consumed by the transport, the access
// policy and the fetch manager.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/fetchurl/pkg/access"
	"github.com/glorpus-work/fetchurl/pkg/errors"
	"github.com/glorpus-work/fetchurl/pkg/fetch"
	"github.com/glorpus-work/fetchurl/pkg/fsutil"
	"github.com/glorpus-work/fetchurl/pkg/transport"
)

// Config represents the application configuration.
type Config struct {
	// General settings
	Settings Settings `yaml:"settings"`

	// Host access rules
	Access AccessConfig `yaml:"access"`
}

// Settings represents general application settings.
type Settings struct {
	// Network settings
	HTTPTimeout    time.Duration `yaml:"http_timeout"` // 0 means transfers are not cut off
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	MaxConcurrent  int           `yaml:"max_concurrent_transfers"`
	MaxBodySize    int64         `yaml:"max_body_size"` // 0 means unlimited
	UserAgent      string        `yaml:"user_agent,omitempty"`

	// Completion queue settings
	QueueSize int `yaml:"queue_size"`

	// Output settings
	OutputFormat string `yaml:"output_format"` // text, json
	LogLevel     string `yaml:"log_level"`     // debug, info, warn, error
}

// AccessConfig holds the host allow and deny lists.
type AccessConfig struct {
	AllowHosts    []string `yaml:"allow_hosts,omitempty"`
	DenyHosts     []string `yaml:"deny_hosts,omitempty"`
	HostCacheSize int      `yaml:"host_cache_size"`
}

// Default configuration values.
const (
	// DefaultHTTPTimeout is the default timeout applied to each transfer.
	// Setting http_timeout to 0 disables it.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultConnectTimeout bounds connection setup.
	DefaultConnectTimeout = transport.DefaultConnectTimeout

	// DefaultMaxConcurrent is the default number of transfers on the wire at once.
	DefaultMaxConcurrent = transport.DefaultMaxConcurrent

	// DefaultQueueSize is the initial capacity of the completion queue.
	DefaultQueueSize = fetch.DefaultQueueSize

	// DefaultHostCacheSize is the number of host decisions kept by the access policy.
	DefaultHostCacheSize = access.DefaultCacheSize

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			HTTPTimeout:    DefaultHTTPTimeout,
			ConnectTimeout: DefaultConnectTimeout,
			MaxConcurrent:  DefaultMaxConcurrent,
			QueueSize:      DefaultQueueSize,
			OutputFormat:   "text",
			LogLevel:       "info",
		},
		Access: AccessConfig{
			HostCacheSize: DefaultHostCacheSize,
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	// Keys absent from the document keep their defaults; explicit zeros stay.
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrConfigParse, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrConfigValidation, err)
	}

	return config, nil
}

// SaveConfig saves configuration to a file.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	data, err := c.ToYAML()
	if err != nil {
		return err
	}

	if err := fsutil.EnsureDir(filepath.Dir(absPath)); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	if err := fsutil.WriteFileAtomic(absPath, data, fsutil.FileModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	var sb strings.Builder
	encoder := yaml.NewEncoder(&sb)
	encoder.SetIndent(YAMLIndent)
	if err := encoder.Encode(c); err != nil {
		return nil, errors.Wrap(errors.ErrConfigMarshal, err.Error())
	}
	if err := encoder.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigMarshal, err.Error())
	}
	return []byte(sb.String()), nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateSettings(c.Settings); err != nil {
		return err
	}
	return validateAccess(c.Access)
}

func validateSettings(s Settings) error {
	if s.HTTPTimeout < 0 {
		return errors.ErrHTTPTimeoutNegative
	}
	if s.ConnectTimeout < 0 {
		return errors.ErrConnectTimeout
	}
	if s.MaxConcurrent < 1 {
		return errors.ErrMaxConcurrent
	}
	if s.MaxBodySize < 0 {
		return errors.ErrMaxBodySizeNegative
	}
	if s.QueueSize < 1 {
		return errors.ErrQueueSize
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[s.OutputFormat] {
		return errors.ErrInvalidOutputFormatWithDetails(s.OutputFormat)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errors.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	return nil
}

func validateAccess(a AccessConfig) error {
	if a.HostCacheSize < 0 {
		return errors.Wrap(errors.ErrInvalidValue, "host_cache_size cannot be negative")
	}
	if err := access.ValidatePatterns(a.AllowHosts); err != nil {
		return err
	}
	return access.ValidatePatterns(a.DenyHosts)
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "fetchurl", "config.yaml"), nil
}

// TransportOptions returns the options for transport.NewClient.
func (c *Config) TransportOptions() transport.Options {
	return transport.Options{
		MaxConcurrent:  c.Settings.MaxConcurrent,
		ConnectTimeout: c.Settings.ConnectTimeout,
		UserAgent:      c.Settings.UserAgent,
		MaxBodySize:    c.Settings.MaxBodySize,
	}
}

// AccessPolicy compiles the configured host rules.
func (c *Config) AccessPolicy() (*access.Policy, error) {
	return access.NewPolicy(c.Access.AllowHosts, c.Access.DenyHosts, c.Access.HostCacheSize)
}

// NewManager builds a fetch manager backed by a fresh transport client.
func (c *Config) NewManager() (*fetch.Manager, error) {
	policy, err := c.AccessPolicy()
	if err != nil {
		return nil, err
	}
	client := transport.NewClient(c.TransportOptions())
	m, err := fetch.NewManager(fetch.Config{
		Transport:      client,
		Access:         policy,
		DefaultTimeout: c.Settings.HTTPTimeout,
		QueueSize:      c.Settings.QueueSize,
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return m, nil
}
