package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxResponseBodySize bounds how much of a response is read. Generous enough
// for the unbounded row-cap variant while still protecting against a
// misbehaving service.
const maxResponseBodySize = 8 << 20 // 8MB

// connection pooling limits to prevent resource exhaustion on long-running
// dashboards that poll every few seconds
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 2
	defaultMaxConnsPerHost     = 4
	defaultIdleConnTimeout     = 60 * time.Second
)

// selectColumns is the fixed column list of the readings query.
const selectColumns = "id,created_at,people_count"

// Reading is one validated people-count row from the remote table.
type Reading struct {
	// ID is the row's unique identifier.
	ID int64 `json:"id"`

	// CreatedAt is the row's creation timestamp.
	CreatedAt time.Time `json:"created_at"`

	// PeopleCount is the non-negative observed count.
	PeopleCount int `json:"people_count"`
}

// Client fetches readings from a single remote table.
//
// Client uses per-request timeouts via context rather than a global timeout,
// and pools connections since the same host is polled on a fixed cadence.
// The query shape is fixed at construction; FetchReadings takes no
// parameters beyond the context.
type Client struct {
	httpClient *http.Client
	queryURL   string
	apiKey     string
	timeout    time.Duration
}

// NewClient creates a [Client] bound to one readings table.
//
// baseURL is the root of the table service (e.g. the REST base of a managed
// database), table is the table name, apiKey is sent as both the apikey and
// bearer Authorization headers when non-empty, rowCap limits the number of
// rows requested (0 means all rows), and timeout applies per request.
func NewClient(baseURL, table, apiKey string, rowCap int, timeout time.Duration) *Client {
	params := url.Values{}
	params.Set("select", selectColumns)
	params.Set("order", "created_at.asc")
	if rowCap > 0 {
		params.Set("limit", strconv.Itoa(rowCap))
	}

	queryURL := strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(table) + "?" + params.Encode()

	return &Client{
		httpClient: &http.Client{
			// no default timeout - per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
				DisableKeepAlives:   false, // the same host is hit every poll
			},
		},
		queryURL: queryURL,
		apiKey:   apiKey,
		timeout:  timeout,
	}
}

// QueryURL returns the fixed URL the client polls. Useful for logging.
func (c *Client) QueryURL() string {
	return c.queryURL
}

// FetchReadings requests the configured rows and returns them in the
// ascending created_at order the service guarantees.
//
// Failures are typed: transport errors and non-2xx responses return a
// [*FetchError]; rows that fail validation (missing or unparseable
// created_at, negative people_count) return a [*ParseError]. In either case
// no partial result is returned.
func (c *Client) FetchReadings(ctx context.Context) ([]Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL, nil)
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	return parseRows(body)
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

// rawRow is the wire shape of one table row before validation.
type rawRow struct {
	ID          int64  `json:"id"`
	CreatedAt   string `json:"created_at"`
	PeopleCount *int   `json:"people_count"`
}

// timestampLayouts are tried in order when parsing created_at. Managed table
// services emit RFC 3339 with a zone; a zoneless timestamp is read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// parseRows decodes and validates the response body.
func parseRows(body []byte) ([]Reading, error) {
	var raw []rawRow
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &FetchError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	readings := make([]Reading, 0, len(raw))
	for i, row := range raw {
		if row.CreatedAt == "" {
			return nil, &ParseError{Row: i, Field: "created_at", Err: errMissing}
		}
		ts, err := parseTimestamp(row.CreatedAt)
		if err != nil {
			return nil, &ParseError{Row: i, Field: "created_at", Err: err}
		}
		if row.PeopleCount == nil {
			return nil, &ParseError{Row: i, Field: "people_count", Err: errMissing}
		}
		if *row.PeopleCount < 0 {
			return nil, &ParseError{Row: i, Field: "people_count", Err: fmt.Errorf("negative count %d", *row.PeopleCount)}
		}
		readings = append(readings, Reading{
			ID:          row.ID,
			CreatedAt:   ts,
			PeopleCount: *row.PeopleCount,
		})
	}

	return readings, nil
}

// parseTimestamp tries each supported layout.
func parseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, s)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q: %w", s, lastErr)
}
