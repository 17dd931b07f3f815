// Package eventapi provides the HTTP client for the Inferno Core event API,
// the third-party source of event metadata used to compose calendar events.
package eventapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"inferno.jolokia.com/config"
)

// EventRecord is the event metadata returned by the Inferno Core API.
// It is immutable once fetched and only lives for the duration of one
// workflow invocation.
type EventRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime"`
}

// Client calls the Inferno Core event API with a bearer API key. The
// underlying HTTP client carries a bounded timeout since this is the only
// uncontrolled third party in the request path.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an event API client from configuration.
func NewClient(cfg config.InfernoConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchEvent retrieves the event with the given identifier. A non-2xx
// response or a malformed body is an error; callers treat any failure as
// the signal to fall back to the default event.
func (c *Client) FetchEvent(ctx context.Context, id string) (*EventRecord, error) {
	url := fmt.Sprintf("%s/api/Events/%s", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building event request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching event %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("event API returned status %d for event %s", resp.StatusCode, id)
	}

	var record EventRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decoding event %s: %w", id, err)
	}

	return &record, nil
}
