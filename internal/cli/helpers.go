// Package cli implements the fetchurl cobra commands.
package cli

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/glorpus-work/fetchurl/internal/logger"
	"github.com/glorpus-work/fetchurl/pkg/config"
	"github.com/glorpus-work/fetchurl/pkg/errors"
	"github.com/glorpus-work/fetchurl/pkg/fetch"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
	LogFormat  *string
)

// loadConfig loads the configuration, applies the global flag overrides and
// configures the process logger from the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	// Override config with CLI flags if provided
	if LogFormat != nil && *LogFormat != "" {
		cfg.Settings.OutputFormat = *LogFormat
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.InitLogger(cfg.Settings.LogLevel, logger.OutputFormat(cfg.Settings.OutputFormat))
	return cfg, nil
}

// newManager builds the fetch manager for cfg, sending the fetchurl
// User-Agent unless the configuration names one.
func newManager(cfg *config.Config) (*fetch.Manager, error) {
	if cfg.Settings.UserAgent == "" {
		withAgent := *cfg
		withAgent.Settings.UserAgent = UserAgent()
		cfg = &withAgent
	}
	m, err := cfg.NewManager()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fetch manager")
	}
	return m, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		// An empty path produces a descriptive error once the file is read or written
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
