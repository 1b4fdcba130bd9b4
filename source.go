package countboard

import (
	"errors"
	"net/url"
	"time"
)

const defaultSourceTimeout = 10 * time.Second

// Source describes the remote readings table to poll.
//
// Source is immutable after creation via [NewSource]. All fields are private
// with getter methods, ensuring the source cannot be modified after
// construction.
//
// Sources are configured using the functional options pattern with
// [SourceOption] functions such as [WithAPIKey] and [WithTimeout].
type Source struct {
	baseURL string
	table   string
	apiKey  string
	timeout time.Duration
}

// BaseURL returns the REST base URL of the readings service.
func (s Source) BaseURL() string {
	return s.baseURL
}

// Table returns the name of the table holding the readings.
func (s Source) Table() string {
	return s.table
}

// APIKey returns the API key sent with every fetch request.
// Returns empty string if no key was configured.
func (s Source) APIKey() string {
	return s.apiKey
}

// Timeout returns the per-fetch HTTP timeout.
// Defaults to 10 seconds if not explicitly set via [WithTimeout].
func (s Source) Timeout() time.Duration {
	return s.timeout
}

// NewSource creates a [Source] for the given REST base URL and table name.
//
// The baseURL must be a valid URL with an http:// or https:// scheme, e.g.
// "https://abc.example.co/rest/v1". The table parameter names the table to
// query.
//
// Options are applied in order. See [WithAPIKey] and [WithTimeout].
//
// Example:
//
//	src, err := countboard.NewSource("https://abc.example.co/rest/v1", "readings",
//	    countboard.WithAPIKey(os.Getenv("READINGS_API_KEY")),
//	    countboard.WithTimeout(5 * time.Second),
//	)
func NewSource(baseURL, table string, opts ...SourceOption) (Source, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return Source{}, errors.New("invalid base URL: " + err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Source{}, errors.New("base URL must have an http:// or https:// scheme")
	}
	if table == "" {
		return Source{}, errors.New("table name cannot be empty")
	}

	cfg := &sourceConfig{
		timeout: defaultSourceTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Source{}, err
		}
	}

	return Source{
		baseURL: baseURL,
		table:   table,
		apiKey:  cfg.apiKey,
		timeout: cfg.timeout,
	}, nil
}
