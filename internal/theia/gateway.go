package theia

import (
	"context"
	"log/slog"

	"github.com/mirrornode/mirrornode/internal/core"
	"github.com/mirrornode/mirrornode/internal/event"
)

// Gateway is the sole public entry point to the routing core. It holds
// process-wide configuration fixed at construction and delegates to the
// Router unconditionally, so the Router stays testable without any
// transport in front of it.
type Gateway struct {
	router *Router
}

// NewGateway builds a gateway for one environment. A nil logger falls
// back to slog.Default.
func NewGateway(environment string, p core.Processor, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{router: NewRouter(environment, p, logger)}
}

// HandleEvent routes one event and returns the structured outcome.
func (g *Gateway) HandleEvent(ctx context.Context, ev event.Event) Response {
	return g.router.Route(ctx, ev)
}
