package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/fetchurl/pkg/errors"
)

// Keys lists every key accepted by SetValue and GetValue.
var Keys = []string{
	"http_timeout",
	"connect_timeout",
	"max_concurrent_transfers",
	"max_body_size",
	"user_agent",
	"queue_size",
	"output_format",
	"log_level",
	"allow_hosts",
	"deny_hosts",
	"host_cache_size",
}

// SetValue sets a configuration value by key
// Supported keys:
//   - http_timeout, connect_timeout: duration (e.g. "30s"), http_timeout "0" for no limit
//   - max_concurrent_transfers, queue_size, host_cache_size: int
//   - max_body_size: int, bytes, 0 for unlimited
//   - user_agent, output_format, log_level: string
//   - allow_hosts, deny_hosts: comma separated host patterns
//
// The caller is expected to Validate the result before saving it.
func (c *Config) SetValue(key, value string) error {
	switch key {
	case "http_timeout":
		d, err := parseDuration(key, value)
		if err != nil {
			return err
		}
		c.Settings.HTTPTimeout = d
	case "connect_timeout":
		d, err := parseDuration(key, value)
		if err != nil {
			return err
		}
		c.Settings.ConnectTimeout = d
	case "max_concurrent_transfers":
		n, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.Settings.MaxConcurrent = int(n)
	case "max_body_size":
		n, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.Settings.MaxBodySize = n
	case "user_agent":
		c.Settings.UserAgent = value
	case "queue_size":
		n, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.Settings.QueueSize = int(n)
	case "output_format":
		c.Settings.OutputFormat = value
	case "log_level":
		c.Settings.LogLevel = value
	case "allow_hosts":
		c.Access.AllowHosts = splitList(value)
	case "deny_hosts":
		c.Access.DenyHosts = splitList(value)
	case "host_cache_size":
		n, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.Access.HostCacheSize = int(n)
	default:
		return errors.ErrUnknownConfigKeyWithName(key)
	}
	return nil
}

// GetValue returns the value as a string and any error encountered.
func (c *Config) GetValue(key string) (string, error) {
	switch key {
	case "http_timeout":
		return c.Settings.HTTPTimeout.String(), nil
	case "connect_timeout":
		return c.Settings.ConnectTimeout.String(), nil
	case "max_concurrent_transfers":
		return strconv.Itoa(c.Settings.MaxConcurrent), nil
	case "max_body_size":
		return strconv.FormatInt(c.Settings.MaxBodySize, 10), nil
	case "user_agent":
		return c.Settings.UserAgent, nil
	case "queue_size":
		return strconv.Itoa(c.Settings.QueueSize), nil
	case "output_format":
		return c.Settings.OutputFormat, nil
	case "log_level":
		return c.Settings.LogLevel, nil
	case "allow_hosts":
		return strings.Join(c.Access.AllowHosts, ","), nil
	case "deny_hosts":
		return strings.Join(c.Access.DenyHosts, ","), nil
	case "host_cache_size":
		return strconv.Itoa(c.Access.HostCacheSize), nil
	default:
		return "", errors.ErrUnknownConfigKeyWithName(key)
	}
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrInvalidValue, "%s: %s", key, value)
	}
	return d, nil
}

func parseInt(key, value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrInvalidValue, "%s: %s", key, value)
	}
	return n, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ToMap flattens settings and access rules into yaml key / string pairs.
// This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string)
	flatten(reflect.ValueOf(c.Settings), result)
	flatten(reflect.ValueOf(c.Access), result)
	return result
}

func flatten(v reflect.Value, result map[string]string) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		yamlTag := field.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		// Handle yaml tags with options (e.g., "user_agent,omitempty")
		yamlKey := strings.Split(yamlTag, ",")[0]
		result[yamlKey] = formatValue(v.Field(i))
	}
}

func formatValue(fieldValue reflect.Value) string {
	if d, ok := fieldValue.Interface().(time.Duration); ok {
		return d.String()
	}

	switch fieldValue.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(fieldValue.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(fieldValue.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(fieldValue.Uint(), 10)
	case reflect.Slice:
		if strs, ok := fieldValue.Interface().([]string); ok {
			return strings.Join(strs, ",")
		}
		return fmt.Sprintf("%v", fieldValue.Interface())
	case reflect.String:
		return fieldValue.String()
	default:
		return fmt.Sprintf("%v", fieldValue.Interface())
	}
}
