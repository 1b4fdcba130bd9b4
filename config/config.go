// Package config provides YAML configuration parsing for countboard.
//
// This package enables running countboard as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Lobby Counter
//	port: 8080
//	poll_interval: 5s
//	threshold: 10
//
//	source:
//	  url: https://abc.example.co/rest/v1
//	  table: readings
//	  api_key: ${READINGS_API_KEY}
//	  row_cap: 100
//
//	polling:
//	  mode: gated
//	  access_code: ${ACCESS_CODE}
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// minPollInterval is the minimum allowed polling interval for production
// configs. This prevents accidental DoS of the readings service with overly
// aggressive polling.
const minPollInterval = 1 * time.Second

// Polling modes.
const (
	// ModeAlwaysOn starts fetching immediately; the dashboard toggle is
	// open to anyone.
	ModeAlwaysOn = "always-on"

	// ModeGated starts idle; enabling the toggle requires the access code.
	ModeGated = "gated"
)

// Config is the root configuration structure for countboard.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "People Counter" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// PollInterval is the time between refresh cycles.
	// Accepts duration strings like "5s", "1m", "500ms".
	// Defaults to 5s.
	PollInterval Duration `yaml:"poll_interval"`

	// Threshold is the initial alert threshold. Defaults to 10.
	Threshold *int `yaml:"threshold"`

	// Source defines the readings table to poll.
	Source SourceConfig `yaml:"source"`

	// Polling controls whether the dashboard toggle is gated.
	Polling PollingConfig `yaml:"polling"`
}

// SourceConfig defines the remote readings table.
type SourceConfig struct {
	// URL is the REST base URL of the readings service.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Table is the name of the table holding the readings.
	Table string `yaml:"table"`

	// APIKey is sent as both an apikey header and a bearer token.
	// Supports environment variable substitution.
	APIKey string `yaml:"api_key"`

	// RowCap limits each fetch to the most recent N rows.
	// 0 means unbounded. Defaults to 100.
	RowCap *int `yaml:"row_cap"`

	// Timeout is the per-fetch HTTP timeout. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`
}

// PollingConfig controls the dashboard's polling toggle.
type PollingConfig struct {
	// Mode is "always-on" (default) or "gated".
	Mode string `yaml:"mode"`

	// AccessCode is required to enable polling in gated mode.
	// Supports environment variable substitution.
	AccessCode string `yaml:"access_code"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		// submatches[2] is ":-..." (non-empty if default syntax was used)
		// submatches[3] is the actual default value (may be empty for ${VAR:-})
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before validation.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the source URL, API key, and access
// code. Defaults are applied for Port (8080), PollInterval (5s), Threshold
// (10), RowCap (100), and the source Timeout (10s).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(5 * time.Second)
	}
	if cfg.Threshold == nil {
		threshold := 10
		cfg.Threshold = &threshold
	}
	if cfg.Source.RowCap == nil {
		rowCap := 100
		cfg.Source.RowCap = &rowCap
	}
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = Duration(10 * time.Second)
	}
	if cfg.Polling.Mode == "" {
		cfg.Polling.Mode = ModeAlwaysOn
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}

	if c.Source.URL == "" {
		return fmt.Errorf("source: url is required")
	}
	expanded, err := expandEnvVars(c.Source.URL)
	if err != nil {
		return fmt.Errorf("source: url: %w", err)
	}
	c.Source.URL = expanded

	parsedURL, err := url.Parse(c.Source.URL)
	if err != nil {
		return fmt.Errorf("source: invalid url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("source: url scheme must be http or https, got %q", parsedURL.Scheme)
	}

	if c.Source.Table == "" {
		return fmt.Errorf("source: table is required")
	}

	expanded, err = expandEnvVars(c.Source.APIKey)
	if err != nil {
		return fmt.Errorf("source: api_key: %w", err)
	}
	c.Source.APIKey = expanded

	if *c.Source.RowCap < 0 {
		return fmt.Errorf("source: row_cap cannot be negative, got %d", *c.Source.RowCap)
	}

	if c.Source.Timeout.Duration() < time.Second {
		return fmt.Errorf("source: timeout must be at least 1s, got %s", c.Source.Timeout.Duration())
	}

	switch c.Polling.Mode {
	case ModeAlwaysOn, ModeGated:
	default:
		return fmt.Errorf("polling: mode must be %q or %q, got %q", ModeAlwaysOn, ModeGated, c.Polling.Mode)
	}

	expanded, err = expandEnvVars(c.Polling.AccessCode)
	if err != nil {
		return fmt.Errorf("polling: access_code: %w", err)
	}
	c.Polling.AccessCode = expanded

	if c.Polling.Mode == ModeGated && c.Polling.AccessCode == "" {
		return fmt.Errorf("polling: gated mode requires an access_code")
	}

	return nil
}
