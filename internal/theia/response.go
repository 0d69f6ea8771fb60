// Package theia is the routing core: the Gateway entry point and the
// Router that enriches envelopes and hands them to a Processor.
package theia

import "github.com/mirrornode/mirrornode/internal/event"

// Route statuses. Terminal per event, no retries at this layer.
const (
	StatusRouted    = "ROUTED"
	StatusCoreError = "CORE_ERROR"
)

// RouteResult wraps a processor's output with its identity.
type RouteResult struct {
	Source          string `json:"source"`
	ProcessorResult any    `json:"processor_result"`
}

// Response is the structured outcome of routing one event. Transport
// callers only ever see this shape, never a raw processor error.
type Response struct {
	OK      bool         `json:"ok"`
	Status  string       `json:"status,omitempty"`
	Message string       `json:"message,omitempty"`
	Event   *event.Event `json:"event,omitempty"`
	Result  *RouteResult `json:"result,omitempty"`
}
