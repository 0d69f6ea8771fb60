// Package sdk provides a Go client for a mirrornode gateway.
//
// Basic usage:
//
//	c := sdk.NewClient("http://localhost:8420", "my-agent")
//	res, err := c.SendEvent(ctx, sdk.Event{
//		Type:    "INTEGRATION",
//		Payload: sdk.Payload{Data: map[string]any{"hello": "world"}},
//	})
//
// The wire types here mirror the gateway's envelope so starter kits can
// depend on the SDK alone.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Meta carries event traceability metadata.
type Meta struct {
	ID          string `json:"id"`
	ParentID    string `json:"parentId,omitempty"`
	Timestamp   string `json:"timestamp"`
	Source      string `json:"source,omitempty"`
	Environment string `json:"environment,omitempty"`
}

// Payload is the opaque payload container.
type Payload struct {
	Data any      `json:"data"`
	Tags []string `json:"tags,omitempty"`
}

// Event is the envelope sent to POST /theia. Version, meta.id, and
// meta.timestamp are filled in by SendEvent when empty.
type Event struct {
	Version string  `json:"version"`
	Type    string  `json:"type"`
	Meta    Meta    `json:"meta"`
	Payload Payload `json:"payload"`
}

// RouteResult wraps the processor output inside a Response.
type RouteResult struct {
	Source          string `json:"source"`
	ProcessorResult any    `json:"processor_result"`
}

// Response is the gateway's routing outcome.
type Response struct {
	OK      bool         `json:"ok"`
	Status  string       `json:"status,omitempty"`
	Message string       `json:"message,omitempty"`
	Event   *Event       `json:"event,omitempty"`
	Result  *RouteResult `json:"result,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	OK      bool `json:"ok"`
	Events  int  `json:"events"`
	Clients int  `json:"clients"`
}

// RecentResponse is returned by GET /events/recent.
type RecentResponse struct {
	OK     bool    `json:"ok"`
	Events []Event `json:"events"`
	Count  int     `json:"count"`
}

// GatewayError is returned when the gateway rejects or fails an event.
type GatewayError struct {
	StatusCode int
	Response   Response
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("mirrornode: %s (HTTP %d, status=%s)",
		e.Response.Message, e.StatusCode, e.Response.Status)
}

// Client sends events to a mirrornode gateway.
type Client struct {
	baseURL    string
	source     string
	httpClient *http.Client
}

// NewClient creates a gateway client. source labels events from this
// client; it may be empty.
func NewClient(baseURL, source string) *Client {
	return &Client{
		baseURL:    baseURL,
		source:     source,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SendEvent routes an event through the gateway. Missing version, id,
// timestamp, and source are filled in. Non-200 responses return a
// *GatewayError alongside the decoded response.
func (c *Client) SendEvent(ctx context.Context, ev Event) (*Response, error) {
	if ev.Version == "" {
		ev.Version = "1.0"
	}
	if ev.Meta.ID == "" {
		ev.Meta.ID = uuid.New().String()
	}
	if ev.Meta.Timestamp == "" {
		ev.Meta.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if ev.Meta.Source == "" {
		ev.Meta.Source = c.source
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshaling event: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/theia", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending event: %w", err)
	}
	defer httpResp.Body.Close()

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding response (HTTP %d): %w", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return &resp, &GatewayError{StatusCode: httpResp.StatusCode, Response: resp}
	}
	return &resp, nil
}

// Health checks the gateway health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	defer httpResp.Body.Close()

	var resp HealthResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding health: %w", err)
	}
	return &resp, nil
}

// RecentEvents fetches the newest routed events, up to limit.
func (c *Client) RecentEvents(ctx context.Context, limit int) (*RecentResponse, error) {
	url := c.baseURL + "/events/recent"
	if limit > 0 {
		url = fmt.Sprintf("%s?limit=%d", url, limit)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetching recent events: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching recent events: %s", httpResp.Status)
	}

	var resp RecentResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding recent events: %w", err)
	}
	return &resp, nil
}
