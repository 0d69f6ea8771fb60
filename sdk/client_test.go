package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendEventFillsDefaults(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/theia" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding: %v", err)
		}
		json.NewEncoder(w).Encode(Response{OK: true, Status: "ROUTED", Event: &got})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "starter-kit")
	res, err := c.SendEvent(context.Background(), Event{
		Type:    "INTEGRATION",
		Payload: Payload{Data: map[string]any{"hello": "world"}},
	})
	if err != nil {
		t.Fatalf("SendEvent: %v", err)
	}
	if !res.OK || res.Status != "ROUTED" {
		t.Errorf("unexpected response: %+v", res)
	}
	if got.Version != "1.0" {
		t.Errorf("version not defaulted: %q", got.Version)
	}
	if got.Meta.ID == "" || got.Meta.Timestamp == "" {
		t.Errorf("meta not defaulted: %+v", got.Meta)
	}
	if got.Meta.Source != "starter-kit" {
		t.Errorf("source = %q, want starter-kit", got.Meta.Source)
	}
}

func TestSendEventKeepsCallerValues(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(Response{OK: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "starter-kit")
	_, err := c.SendEvent(context.Background(), Event{
		Version: "2.0",
		Type:    "EXECUTION",
		Meta:    Meta{ID: "fixed", Timestamp: "2026-01-01T00:00:00Z", Source: "custom"},
		Payload: Payload{Data: nil},
	})
	if err != nil {
		t.Fatalf("SendEvent: %v", err)
	}
	if got.Version != "2.0" || got.Meta.ID != "fixed" || got.Meta.Source != "custom" {
		t.Errorf("caller values overwritten: %+v", got)
	}
}

func TestSendEventGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(Response{OK: false, Status: "CORE_ERROR", Message: "core processing failed"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	res, err := c.SendEvent(context.Background(), Event{Type: "ANALYSIS"})
	if err == nil {
		t.Fatal("expected error")
	}
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected *GatewayError, got %T", err)
	}
	if gwErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d", gwErr.StatusCode)
	}
	// The decoded response is still returned for inspection.
	if res == nil || res.Status != "CORE_ERROR" {
		t.Errorf("response = %+v", res)
	}
}

func TestHealthAndRecent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			json.NewEncoder(w).Encode(HealthResponse{OK: true, Events: 3})
		case "/events/recent":
			if got := r.URL.Query().Get("limit"); got != "2" {
				t.Errorf("limit = %q", got)
			}
			json.NewEncoder(w).Encode(RecentResponse{OK: true, Events: []Event{{Type: "ANALYSIS"}}, Count: 1})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if !h.OK || h.Events != 3 {
		t.Errorf("health = %+v", h)
	}

	rec, err := c.RecentEvents(context.Background(), 2)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if rec.Count != 1 || len(rec.Events) != 1 {
		t.Errorf("recent = %+v", rec)
	}
}
