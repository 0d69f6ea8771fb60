// Package bridge is the HTTP client for the external MIRRORNODE event
// store. Non-2xx responses surface as errors carrying the status text.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mirrornode/mirrornode/internal/event"
)

// BridgeEvent is the bridge's wire format for one stored event.
type BridgeEvent struct {
	ID      string         `json:"id,omitempty"`
	TS      string         `json:"ts,omitempty"`
	Node    string         `json:"node"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	OK      bool `json:"ok"`
	Events  int  `json:"events"`
	Clients int  `json:"clients"`
}

// PostResponse is returned by POST /events.
type PostResponse struct {
	OK     bool         `json:"ok"`
	Stored *BridgeEvent `json:"stored,omitempty"`
}

// RecentResponse is returned by GET /events/recent.
type RecentResponse struct {
	OK     bool          `json:"ok"`
	Events []BridgeEvent `json:"events"`
	Count  int           `json:"count"`
}

// Client talks to a MIRRORNODE bridge service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a bridge client. timeout <= 0 defaults to 30s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FromEvent maps a canonical envelope to the bridge wire format.
func FromEvent(ev event.Event) BridgeEvent {
	node := ev.Meta.Source
	if node == "" {
		node = "theia-core"
	}
	payload := map[string]any{"data": ev.Payload.Data}
	if len(ev.Payload.Tags) > 0 {
		payload["tags"] = ev.Payload.Tags
	}
	return BridgeEvent{
		ID:      ev.Meta.ID,
		TS:      ev.Meta.Timestamp,
		Node:    node,
		Kind:    string(ev.Type),
		Payload: payload,
	}
}

// Health checks the bridge.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	var out HealthResponse
	if err := c.do(req, "bridge health check failed", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostEvent stores an event on the bridge.
func (c *Client) PostEvent(ctx context.Context, ev BridgeEvent) (*PostResponse, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var out PostResponse
	if err := c.do(req, "failed to post event", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recent fetches the newest events, up to limit.
func (c *Client) Recent(ctx context.Context, limit int) (*RecentResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	url := fmt.Sprintf("%s/events/recent?limit=%d", c.baseURL, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	var out RecentResponse
	if err := c.do(req, "failed to get recent events", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(req *http.Request, failMsg string, out any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close() //nolint:errcheck // read-only

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%s: %s", failMsg, res.Status)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding bridge response: %w", err)
	}
	return nil
}
