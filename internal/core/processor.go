// Package core holds the terminal processing stage of the routing
// pipeline: the Processor contract and the default mirrornode-core
// implementation.
package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mirrornode/mirrornode/internal/bridge"
	"github.com/mirrornode/mirrornode/internal/event"
)

// ProcessingResult is what a processor returns for a handled event.
type ProcessingResult struct {
	// Handled indicates the processor accepted the event.
	Handled bool `json:"handled"`
	// Summary is a high-level description of what happened.
	Summary string `json:"summary"`
	// Data is optional structured data to return to callers.
	Data any `json:"data,omitempty"`
}

// Processor is the terminal stage of the pipeline. The router treats any
// returned error as a core failure and translates it; it is never
// propagated raw to transport callers.
type Processor interface {
	Name() string
	Process(ctx context.Context, ev event.Event) (*ProcessingResult, error)
}

// Core is the default processor. It echoes the envelope back as a
// processing summary, records the event in the recent store, and forwards
// it to the external bridge when one is configured.
type Core struct {
	recent RecentStore
	bridge *bridge.Client // nil = no forwarding
	logger *slog.Logger
}

// New creates the default processor. bridgeClient may be nil.
func New(recent RecentStore, bridgeClient *bridge.Client, logger *slog.Logger) *Core {
	return &Core{recent: recent, bridge: bridgeClient, logger: logger}
}

// Name identifies this processor in routed responses.
func (c *Core) Name() string { return "mirrornode-core" }

// Process handles one enriched event.
func (c *Core) Process(ctx context.Context, ev event.Event) (*ProcessingResult, error) {
	if err := c.recent.Add(ctx, ev); err != nil {
		return nil, fmt.Errorf("recording event %s: %w", ev.Meta.ID, err)
	}

	if c.bridge != nil {
		if _, err := c.bridge.PostEvent(ctx, bridge.FromEvent(ev)); err != nil {
			return nil, fmt.Errorf("forwarding event %s: %w", ev.Meta.ID, err)
		}
		c.logger.Debug("event forwarded to bridge", "id", ev.Meta.ID)
	}

	var source any
	if ev.Meta.Source != "" {
		source = ev.Meta.Source
	}

	return &ProcessingResult{
		Handled: true,
		Summary: fmt.Sprintf("mirrornode-core received event %s of type %s", ev.Meta.ID, ev.Type),
		Data: map[string]any{
			"version":   ev.Version,
			"type":      ev.Type,
			"tags":      tagsOrEmpty(ev.Payload.Tags),
			"source":    source,
			"timestamp": ev.Meta.Timestamp,
		},
	}, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
