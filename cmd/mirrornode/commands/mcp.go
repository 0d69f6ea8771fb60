package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirrornode/mirrornode/internal/bridge"
	"github.com/mirrornode/mirrornode/internal/core"
	"github.com/mirrornode/mirrornode/internal/ledger"
	mcpserver "github.com/mirrornode/mirrornode/internal/mcp"
	"github.com/mirrornode/mirrornode/internal/theia"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve mirrornode tools over MCP on stdio",
		Long: `Serve the mirrornode tool surface (emit_audit, route_event,
ledger_query) over the Model Context Protocol on stdio, for use by MCP
clients such as agent runtimes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// Logs go to stderr; stdout belongs to the MCP transport.
			logger := newLogger("error")

			idx, err := openIndex(cfg, logger)
			if err != nil {
				logger.Warn("ledger index unavailable", "error", err)
				idx = nil
			}
			opts := []ledger.WriterOption{ledger.WithNotices(os.Stderr)}
			if idx != nil {
				defer idx.Close() //nolint:errcheck // best-effort flush
				opts = append(opts, ledger.WithIndex(idx))
			}
			writer := ledger.NewWriter(cfg.CanonRoot, logger, opts...)

			var bridgeClient *bridge.Client
			if cfg.Bridge.URL != "" {
				bridgeClient = bridge.NewClient(cfg.Bridge.URL, time.Duration(cfg.Bridge.TimeoutS)*time.Second)
			}
			processor := core.New(core.NewMemoryStore(cfg.Events.RecentLimit), bridgeClient, logger)
			gateway := theia.NewGateway(cfg.Environment, processor, logger)

			srv := mcpserver.NewServer(writer, gateway, idx, version, logger)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
