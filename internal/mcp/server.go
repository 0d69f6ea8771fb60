// Package mcp exposes mirrornode over the Model Context Protocol so
// agents can emit audit records, route events, and query the ledger as
// tools.
package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mirrornode/mirrornode/internal/ledger"
	"github.com/mirrornode/mirrornode/internal/theia"
)

// Server hosts the mirrornode MCP tool surface.
type Server struct {
	writer    *ledger.Writer
	gateway   *theia.Gateway
	index     ledger.Index // optional, Scan fallback when nil
	logger    *slog.Logger
	mcpServer *mcp.Server
}

// NewServer wires the three mirrornode tools onto an MCP server.
func NewServer(writer *ledger.Writer, gateway *theia.Gateway, index ledger.Index, version string, logger *slog.Logger) *Server {
	s := &Server{
		writer:  writer,
		gateway: gateway,
		index:   index,
		logger:  logger,
	}

	srv := mcp.NewServer(&mcp.Implementation{Name: "mirrornode", Version: version}, nil)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "emit_audit",
		Description: "Append one audit record to the execution ledger. Fails closed: an error means the record was NOT written and the audited operation must not be treated as complete.",
	}, s.emitAudit())
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "route_event",
		Description: "Route a MIRRORNODE event envelope through the theia core and return the routing outcome.",
	}, s.routeEvent())
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "ledger_query",
		Description: "Query the audit ledger, newest records first. Filters by subject, verdict, and time.",
	}, s.ledgerQuery())

	s.mcpServer = srv
	return s
}

// Run serves MCP over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting", "transport", "stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
