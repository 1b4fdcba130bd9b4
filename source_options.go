package countboard

import (
	"errors"
	"time"
)

// sourceConfig holds mutable state during Source construction.
type sourceConfig struct {
	apiKey  string
	timeout time.Duration
}

// SourceOption configures a [Source] during construction via [NewSource].
//
// Built-in options: [WithAPIKey], [WithTimeout].
type SourceOption func(*sourceConfig) error

// WithAPIKey sets the API key for the readings service.
//
// The key is sent as both an "apikey" header and a bearer token, the scheme
// REST table gateways expect. If not set, requests are sent without
// authentication headers.
func WithAPIKey(key string) SourceOption {
	return func(cfg *sourceConfig) error {
		cfg.apiKey = key
		return nil
	}
}

// WithTimeout sets the per-fetch HTTP timeout.
//
// Defaults to 10 seconds if not specified.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) SourceOption {
	return func(cfg *sourceConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}
