package mcp

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrornode/mirrornode/internal/core"
	"github.com/mirrornode/mirrornode/internal/ledger"
	"github.com/mirrornode/mirrornode/internal/theia"
)

var uuidRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func newTestMCP(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	writer := ledger.NewWriter(root, logger, ledger.WithNotices(io.Discard))
	processor := core.New(core.NewMemoryStore(10), nil, logger)
	gateway := theia.NewGateway("test", processor, logger)
	return NewServer(writer, gateway, nil, "0.0.0-test", logger), root
}

func TestEmitAuditFailureVerdict(t *testing.T) {
	s, root := newTestMCP(t)

	_, out, err := s.emitAudit()(context.Background(), nil, EmitAuditInput{
		Subject:    "mirror-core",
		EventType:  "execution",
		Verdict:    "FAILURE",
		DurationMs: 42,
		Error:      "boom",
	})
	require.NoError(t, err)
	assert.Regexp(t, uuidRe, out.AuditID)
	assert.Equal(t, "FAILURE", out.Verdict)

	records, err := ledger.Scan(root, ledger.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, ledger.VerdictFailure, r.Verdict)
	require.NotNil(t, r.Evidence.Error)
	assert.Equal(t, "boom", *r.Evidence.Error)
	assert.Equal(t, int64(42), r.Evidence.DurationMs)
	assert.Regexp(t, uuidRe, r.AuditID)
}

func TestEmitAuditRejectsBadInput(t *testing.T) {
	s, _ := newTestMCP(t)
	ctx := context.Background()

	_, _, err := s.emitAudit()(ctx, nil, EmitAuditInput{EventType: "x", Verdict: "SUCCESS"})
	assert.Error(t, err, "missing subject")

	_, _, err = s.emitAudit()(ctx, nil, EmitAuditInput{Subject: "s", Verdict: "SUCCESS"})
	assert.Error(t, err, "missing event_type")

	_, _, err = s.emitAudit()(ctx, nil, EmitAuditInput{Subject: "s", EventType: "x", Verdict: "MAYBE"})
	assert.Error(t, err, "bad verdict")
}

func TestRouteEventGeneratesDefaults(t *testing.T) {
	s, _ := newTestMCP(t)

	_, out, err := s.routeEvent()(context.Background(), nil, RouteEventInput{
		Type:   "ANALYSIS",
		Source: "agent",
		Data:   map[string]any{"k": "v"},
	})
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, theia.StatusRouted, out.Status)
	assert.Regexp(t, uuidRe, out.EventID)
	assert.Equal(t, "agent|theia-core", out.Source)
	assert.Equal(t, "test", out.Environment)
}

func TestRouteEventRejectsUnknownType(t *testing.T) {
	s, _ := newTestMCP(t)

	_, _, err := s.routeEvent()(context.Background(), nil, RouteEventInput{Type: "SHOUTING"})
	require.Error(t, err)
}

func TestLedgerQueryFilters(t *testing.T) {
	s, _ := newTestMCP(t)
	ctx := context.Background()

	for _, in := range []EmitAuditInput{
		{Subject: "alpha", EventType: "execution", Verdict: "SUCCESS"},
		{Subject: "alpha", EventType: "execution", Verdict: "FAILURE", Error: "nope"},
		{Subject: "beta", EventType: "execution", Verdict: "SUCCESS"},
	} {
		_, _, err := s.emitAudit()(ctx, nil, in)
		require.NoError(t, err)
	}

	_, out, err := s.ledgerQuery()(ctx, nil, LedgerQueryInput{Subject: "alpha"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)

	_, out, err = s.ledgerQuery()(ctx, nil, LedgerQueryInput{Verdict: "FAILURE"})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "nope", out.Records[0].Error)

	_, _, err = s.ledgerQuery()(ctx, nil, LedgerQueryInput{Verdict: "MAYBE"})
	assert.Error(t, err)
}
