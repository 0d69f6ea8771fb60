package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mirrornode/mirrornode/internal/ledger"
	"github.com/mirrornode/mirrornode/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the charter directory and audit changes",
		Long: `Watch the charter directory and append an audit record for every
charter change. Removals and renames are escalated, since the governed
subjects would silently degrade to UNCHARTERED.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := newLogger(cfg.Server.LogLevel)
			idx, err := openIndex(cfg, logger)
			if err != nil {
				logger.Warn("ledger index unavailable", "error", err)
				idx = nil
			}
			opts := []ledger.WriterOption{}
			if idx != nil {
				defer idx.Close() //nolint:errcheck // best-effort flush
				opts = append(opts, ledger.WithIndex(idx))
			}
			writer := ledger.NewWriter(cfg.CanonRoot, logger, opts...)

			watcher, err := watch.New(writer, actor, logger)
			if err != nil {
				return err
			}
			defer watcher.Close() //nolint:errcheck // process exit

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "watcher", "actor recorded on charter change audits")
	return cmd
}
