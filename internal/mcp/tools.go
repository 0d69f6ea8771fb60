package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mirrornode/mirrornode/internal/event"
	"github.com/mirrornode/mirrornode/internal/ledger"
)

// EmitAuditInput is the emit_audit tool input.
type EmitAuditInput struct {
	Subject    string `json:"subject" jsonschema:"name of the repository or component under audit"`
	EventType  string `json:"event_type" jsonschema:"free-form event category, e.g. execution or charter_change"`
	Actor      string `json:"actor,omitempty" jsonschema:"initiating principal, defaults to system"`
	Verdict    string `json:"verdict" jsonschema:"one of SUCCESS, FAILURE, BLOCKED, ESCALATED"`
	DurationMs int64  `json:"duration_ms,omitempty" jsonschema:"operation duration in milliseconds"`
	Error      string `json:"error,omitempty" jsonschema:"failure message for non-SUCCESS verdicts"`
}

// EmitAuditResult is the emit_audit tool output.
type EmitAuditResult struct {
	AuditID string `json:"audit_id" jsonschema:"unique id of the appended record"`
	Subject string `json:"subject" jsonschema:"audited subject"`
	Verdict string `json:"verdict" jsonschema:"recorded verdict"`
}

func (s *Server) emitAudit() mcp.ToolHandlerFor[EmitAuditInput, EmitAuditResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input EmitAuditInput) (*mcp.CallToolResult, EmitAuditResult, error) {
		if input.Subject == "" {
			return nil, EmitAuditResult{}, fmt.Errorf("subject is required")
		}
		if input.EventType == "" {
			return nil, EmitAuditResult{}, fmt.Errorf("event_type is required")
		}
		verdict := ledger.Verdict(input.Verdict)
		if !verdict.Valid() {
			return nil, EmitAuditResult{}, fmt.Errorf("invalid verdict %q", input.Verdict)
		}

		var errText *string
		if input.Error != "" {
			errText = ledger.StringPtr(input.Error)
		}

		auditID, err := s.writer.Emit(ledger.BuildParams{
			Subject:   input.Subject,
			EventType: input.EventType,
			Actor:     input.Actor,
			Verdict:   verdict,
			Evidence: ledger.Evidence{
				DurationMs: input.DurationMs,
				Error:      errText,
			},
		})
		if err != nil {
			return nil, EmitAuditResult{}, err
		}
		return nil, EmitAuditResult{AuditID: auditID, Subject: input.Subject, Verdict: input.Verdict}, nil
	}
}

// RouteEventInput is the route_event tool input. ID and timestamp are
// generated when omitted.
type RouteEventInput struct {
	Version   string   `json:"version,omitempty" jsonschema:"envelope version, defaults to 1.0"`
	Type      string   `json:"type" jsonschema:"one of INTEGRATION, EXECUTION, ANALYSIS, REFLECTION, MANIFESTATION"`
	ID        string   `json:"id,omitempty" jsonschema:"event id, generated when omitted"`
	ParentID  string   `json:"parent_id,omitempty" jsonschema:"causal predecessor event id"`
	Timestamp string   `json:"timestamp,omitempty" jsonschema:"ISO creation instant, defaults to now"`
	Source    string   `json:"source,omitempty" jsonschema:"origin label"`
	Data      any      `json:"data" jsonschema:"opaque event payload"`
	Tags      []string `json:"tags,omitempty" jsonschema:"payload tags"`
}

// RouteEventResult is the route_event tool output.
type RouteEventResult struct {
	OK          bool   `json:"ok" jsonschema:"whether routing succeeded"`
	Status      string `json:"status" jsonschema:"ROUTED or CORE_ERROR"`
	Message     string `json:"message,omitempty" jsonschema:"failure message when not ok"`
	EventID     string `json:"event_id" jsonschema:"routed event id"`
	Source      string `json:"source" jsonschema:"enriched source label"`
	Environment string `json:"environment" jsonschema:"environment stamped by the router"`
}

func (s *Server) routeEvent() mcp.ToolHandlerFor[RouteEventInput, RouteEventResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RouteEventInput) (*mcp.CallToolResult, RouteEventResult, error) {
		ev := event.Event{
			Version: input.Version,
			Type:    event.Type(input.Type),
			Meta: event.Meta{
				ID:        input.ID,
				ParentID:  input.ParentID,
				Timestamp: input.Timestamp,
				Source:    input.Source,
			},
			Payload: event.Payload{Data: input.Data, Tags: input.Tags},
		}
		if ev.Version == "" {
			ev.Version = "1.0"
		}
		if ev.Meta.ID == "" {
			ev.Meta.ID = uuid.New().String()
		}
		if ev.Meta.Timestamp == "" {
			ev.Meta.Timestamp = time.Now().UTC().Format(time.RFC3339)
		}
		if err := ev.Validate(); err != nil {
			return nil, RouteEventResult{}, err
		}

		res := s.gateway.HandleEvent(ctx, ev)
		out := RouteEventResult{
			OK:      res.OK,
			Status:  res.Status,
			Message: res.Message,
		}
		if res.Event != nil {
			out.EventID = res.Event.Meta.ID
			out.Source = res.Event.Meta.Source
			out.Environment = res.Event.Meta.Environment
		}
		return nil, out, nil
	}
}

// LedgerQueryInput is the ledger_query tool input.
type LedgerQueryInput struct {
	Subject string `json:"subject,omitempty" jsonschema:"filter by audited subject"`
	Verdict string `json:"verdict,omitempty" jsonschema:"filter by verdict"`
	Since   string `json:"since,omitempty" jsonschema:"RFC-3339 inclusive lower bound on timestamp"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum records to return, default 50"`
}

// LedgerRecord is one record in a ledger_query result.
type LedgerRecord struct {
	AuditID   string `json:"audit_id"`
	Timestamp string `json:"timestamp"`
	Subject   string `json:"subject"`
	EventType string `json:"event_type"`
	Actor     string `json:"actor"`
	Verdict   string `json:"verdict"`
	Error     string `json:"error,omitempty"`
}

// LedgerQueryResult is the ledger_query tool output.
type LedgerQueryResult struct {
	Records []LedgerRecord `json:"records"`
	Count   int            `json:"count" jsonschema:"number of records returned"`
}

func (s *Server) ledgerQuery() mcp.ToolHandlerFor[LedgerQueryInput, LedgerQueryResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input LedgerQueryInput) (*mcp.CallToolResult, LedgerQueryResult, error) {
		if input.Verdict != "" && !ledger.Verdict(input.Verdict).Valid() {
			return nil, LedgerQueryResult{}, fmt.Errorf("invalid verdict %q", input.Verdict)
		}
		opts := ledger.QueryOpts{
			Subject: input.Subject,
			Verdict: ledger.Verdict(input.Verdict),
			Since:   input.Since,
			Limit:   input.Limit,
		}

		var records []ledger.Record
		var err error
		if s.index != nil {
			records, err = s.index.Query(opts)
		} else {
			records, err = ledger.Scan(s.writer.Root(), opts)
		}
		if err != nil {
			return nil, LedgerQueryResult{}, fmt.Errorf("querying ledger: %w", err)
		}

		out := make([]LedgerRecord, 0, len(records))
		for _, r := range records {
			lr := LedgerRecord{
				AuditID:   r.AuditID,
				Timestamp: r.Timestamp,
				Subject:   r.Subject,
				EventType: r.EventType,
				Actor:     r.Actor,
				Verdict:   string(r.Verdict),
			}
			if r.Evidence.Error != nil {
				lr.Error = *r.Evidence.Error
			}
			out = append(out, lr)
		}
		return nil, LedgerQueryResult{Records: out, Count: len(out)}, nil
	}
}
