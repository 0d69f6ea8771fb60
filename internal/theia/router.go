package theia

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/mirrornode/mirrornode/internal/core"
	"github.com/mirrornode/mirrornode/internal/event"
	"github.com/mirrornode/mirrornode/internal/tracer"
)

// routerMarker is appended to meta.source during enrichment so consumers
// can see an event passed through this core.
const routerMarker = "theia-core"

// Router enriches events and forwards them to the processor. Its
// configuration is fixed at construction; there is no runtime
// reconfiguration.
type Router struct {
	environment string
	processor   core.Processor
	logger      *slog.Logger
}

// NewRouter creates a router bound to one environment and processor.
func NewRouter(environment string, p core.Processor, logger *slog.Logger) *Router {
	return &Router{environment: environment, processor: p, logger: logger}
}

// Route runs one event through the pipeline: enrich, process, respond.
// Processor failures are translated to a CORE_ERROR response, never
// propagated as errors.
func (r *Router) Route(ctx context.Context, ev event.Event) Response {
	ctx, span := tracer.StartSpan(ctx, "theia.route", trace.WithAttributes(
		tracer.StringAttr("event.id", ev.Meta.ID),
		tracer.StringAttr("event.type", string(ev.Type)),
	))
	defer span.End()

	r.logger.Debug("event received",
		"id", ev.Meta.ID,
		"type", ev.Type,
		"source", ev.Meta.Source)

	enriched := r.enrich(ev)

	result, err := r.processor.Process(ctx, enriched)
	if err != nil {
		r.logger.Error("core processing failed",
			"id", enriched.Meta.ID,
			"processor", r.processor.Name(),
			"error", err)
		tracer.RecordError(span, err)
		return Response{
			OK:      false,
			Status:  StatusCoreError,
			Message: fmt.Sprintf("core processing failed: %v", err),
			Event:   &enriched,
		}
	}

	r.logger.Info("event routed", "id", enriched.Meta.ID, "type", enriched.Type)
	tracer.SetOK(span)
	return Response{
		OK:     true,
		Status: StatusRouted,
		Event:  &enriched,
		Result: &RouteResult{
			Source:          r.processor.Name(),
			ProcessorResult: result,
		},
	}
}

// enrich returns a copy with the router's marks. The caller's event is
// never mutated.
func (r *Router) enrich(ev event.Event) event.Event {
	enriched := ev
	enriched.Meta.Environment = r.environment
	if ev.Meta.Source != "" {
		enriched.Meta.Source = ev.Meta.Source + "|" + routerMarker
	} else {
		enriched.Meta.Source = routerMarker
	}
	return enriched
}
