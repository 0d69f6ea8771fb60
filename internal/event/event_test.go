package event

import (
	"encoding/json"
	"errors"
	"testing"
)

func validEvent() Event {
	return Event{
		Version: "1.0.0",
		Type:    TypeIntegration,
		Meta:    Meta{ID: "e1", Timestamp: "2026-08-31T10:00:00Z", Source: "unit-test"},
		Payload: Payload{Data: map[string]any{"hello": "world"}, Tags: []string{"smoke"}},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Event)
		field  string
	}{
		{"empty version", func(e *Event) { e.Version = "" }, "version"},
		{"unknown type", func(e *Event) { e.Type = "COMMUNION" }, "type"},
		{"empty type", func(e *Event) { e.Type = "" }, "type"},
		{"missing id", func(e *Event) { e.Meta.ID = "" }, "meta.id"},
		{"missing timestamp", func(e *Event) { e.Meta.Timestamp = "" }, "meta.timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := validEvent()
			tt.mutate(&ev)
			err := ev.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}

	ev := validEvent()
	if err := ev.Validate(); err != nil {
		t.Errorf("valid event rejected: %v", err)
	}
}

func TestValidateIgnoresPayload(t *testing.T) {
	ev := validEvent()
	ev.Payload = Payload{}
	if err := ev.Validate(); err != nil {
		t.Errorf("payload must pass through unexamined, got %v", err)
	}
}

func TestJSONWireNames(t *testing.T) {
	ev := validEvent()
	ev.Meta.ParentID = "e0"

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	meta, ok := raw["meta"].(map[string]any)
	if !ok {
		t.Fatalf("meta missing: %v", raw)
	}
	if meta["parentId"] != "e0" {
		t.Errorf("parentId wire name missing, meta = %v", meta)
	}
}
