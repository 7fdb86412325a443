// Package errors holds the sentinel errors shared by the fetch core, the
// transport, the script host and the CLI, plus small wrapping helpers.
package errors

import "fmt"

// Common error types.
var (
	// URL and access errors.
	ErrBadURL              = fmt.Errorf("bad URL, http:// or ftp:// is required")
	ErrHostNotPermitted    = fmt.Errorf("host not permitted")
	ErrUnsupportedProtocol = fmt.Errorf("unsupported protocol")

	// Transport errors.
	ErrTransportClosed    = fmt.Errorf("transport is closed")
	ErrTransferRegistered = fmt.Errorf("transfer already registered")
	ErrHTTPStatus         = fmt.Errorf("unexpected HTTP status")
	ErrBodyTooLarge       = fmt.Errorf("response body exceeds size limit")
	ErrFTPPath            = fmt.Errorf("ftp URL has no file path")

	// Fetch core errors.
	ErrManagerClosed  = fmt.Errorf("fetch manager is shut down")
	ErrNoTransport    = fmt.Errorf("fetch manager has no transport")
	ErrCallbackFailed = fmt.Errorf("fetch callback failed")
	ErrFetchFailed    = fmt.Errorf("fetch failed")

	// Script errors.
	ErrScriptCompile = fmt.Errorf("failed to compile script")
	ErrScriptRuntime = fmt.Errorf("script runtime error")
	ErrNotCompiled   = fmt.Errorf("script has not been compiled")
	ErrNotCallable   = fmt.Errorf("value is not callable")

	// Config errors.
	ErrEmptyConfigPath     = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath   = fmt.Errorf("invalid config file path")
	ErrConfigParse         = fmt.Errorf("failed to parse config")
	ErrConfigValidation    = fmt.Errorf("invalid configuration")
	ErrConfigDirectory     = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate    = fmt.Errorf("failed to create config file")
	ErrConfigFileExists    = fmt.Errorf("configuration file already exists (use --force to overwrite)")
	ErrConfigMarshal       = fmt.Errorf("failed to marshal config to YAML")
	ErrHTTPTimeoutNegative = fmt.Errorf("http_timeout cannot be negative")
	ErrConnectTimeout      = fmt.Errorf("connect_timeout cannot be negative")
	ErrMaxBodySizeNegative = fmt.Errorf("max_body_size cannot be negative")
	ErrMaxConcurrent       = fmt.Errorf("max_concurrent_transfers must be at least 1")
	ErrQueueSize           = fmt.Errorf("queue_size must be at least 1")
	ErrInvalidOutputFormat = fmt.Errorf("invalid output format")
	ErrInvalidLogLevel     = fmt.Errorf("invalid log level")
	ErrInvalidValue        = fmt.Errorf("invalid value")
	ErrUnknownConfigKey    = fmt.Errorf("unknown configuration key")
	ErrInvalidHostPattern  = fmt.Errorf("invalid host pattern")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrHostNotPermittedWithHost is a helper to create a wrapped error naming the rejected host.
func ErrHostNotPermittedWithHost(host string) error {
	return fmt.Errorf("%w: %s", ErrHostNotPermitted, host)
}

// ErrUnsupportedProtocolWithScheme is a helper to create a wrapped error naming the scheme.
func ErrUnsupportedProtocolWithScheme(scheme string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedProtocol, scheme)
}

// ErrHTTPStatusWithCode is a helper to create a wrapped error with the status code.
func ErrHTTPStatusWithCode(code int) error {
	return fmt.Errorf("%w: %d", ErrHTTPStatus, code)
}

// ErrInvalidOutputFormatWithDetails is a helper to create a wrapped error with the invalid format and valid options.
func ErrInvalidOutputFormatWithDetails(format string) error {
	return fmt.Errorf("%w: '%s', must be one of: text, json", ErrInvalidOutputFormat, format)
}

// ErrInvalidLogLevelWithDetails is a helper to create a wrapped error with the invalid level and valid options.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: debug, info, warn, error", ErrInvalidLogLevel, level)
}

// ErrInvalidHostPatternWithValue is a helper to create a wrapped error with the offending pattern.
func ErrInvalidHostPatternWithValue(pattern string) error {
	return fmt.Errorf("%w: %q", ErrInvalidHostPattern, pattern)
}

// ErrUnknownConfigKeyWithName is a helper to create a wrapped error with the unknown key.
func ErrUnknownConfigKeyWithName(key string) error {
	return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
}
