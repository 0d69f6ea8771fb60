// Package event defines the canonical envelope for MIRRORNODE traffic.
// The types are intentionally minimal and stable so that agents and
// starter-kits can construct events that route through the theia core.
package event

import "fmt"

// Type is the high-level event category. Closed set.
type Type string

const (
	TypeIntegration   Type = "INTEGRATION"
	TypeExecution     Type = "EXECUTION"
	TypeAnalysis      Type = "ANALYSIS"
	TypeReflection    Type = "REFLECTION"
	TypeManifestation Type = "MANIFESTATION"
)

// Types lists the closed set, for validation messages and tooling.
var Types = []Type{TypeIntegration, TypeExecution, TypeAnalysis, TypeReflection, TypeManifestation}

// Valid reports whether t is one of the closed type set.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Meta carries traceability and routing metadata.
type Meta struct {
	// ID is unique per event, supplied by the producer.
	ID string `json:"id"`
	// ParentID optionally chains to a causal predecessor; existence is
	// not validated.
	ParentID string `json:"parentId,omitempty"`
	// Timestamp is the producer-supplied ISO creation instant.
	Timestamp string `json:"timestamp"`
	// Source is a human-readable origin label. Routing appends a marker
	// rather than overwriting it.
	Source string `json:"source,omitempty"`
	// Environment is overwritten by the router with the gateway's
	// configured environment.
	Environment string `json:"environment,omitempty"`
}

// Payload is the opaque payload container. Data and tags pass through the
// pipeline unexamined.
type Payload struct {
	Data any      `json:"data"`
	Tags []string `json:"tags,omitempty"`
}

// Event is the canonical envelope.
type Event struct {
	// Version is the producer-supplied semantic version of the envelope
	// format. Not checked against a compatibility table here.
	Version string  `json:"version"`
	Type    Type    `json:"type"`
	Meta    Meta    `json:"meta"`
	Payload Payload `json:"payload"`
}

// ValidationError reports an envelope schema violation. Transport layers
// map it to a client-input error, distinct from CORE_ERROR.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s: %s", e.Field, e.Reason)
}

// Validate checks the envelope's required fields. Payload data and tags
// are never examined.
func (e *Event) Validate() error {
	if e.Version == "" {
		return &ValidationError{Field: "version", Reason: "must not be empty"}
	}
	if !e.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("%q is not one of %v", e.Type, Types)}
	}
	if e.Meta.ID == "" {
		return &ValidationError{Field: "meta.id", Reason: "must not be empty"}
	}
	if e.Meta.Timestamp == "" {
		return &ValidationError{Field: "meta.timestamp", Reason: "must not be empty"}
	}
	return nil
}
