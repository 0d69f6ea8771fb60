package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mirrornode/mirrornode/internal/config"
	"github.com/mirrornode/mirrornode/internal/ledger"
)

var cfgFile = "mirrornode.yaml"

func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "mirrornode",
		Short: "Execution audit ledger and event gateway",
		Long:  "Mirrornode — append-only execution audit ledger plus the theia event routing core. One binary.",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", cfgFile, "config file path")

	root.AddCommand(
		newServeCmd(),
		newEmitCmd(),
		newLogsCmd(),
		newSendCmd(),
		newWatchCmd(),
		newCharterCmd(),
		newStatusCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)

	return root
}

// loadConfig reads the config file, falling back to defaults when the
// file does not exist.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		cfg = config.Defaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the standard stderr text logger honoring the
// configured level.
func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openIndex opens the configured ledger index, or nil when indexing is
// off.
func openIndex(cfg *config.Config, logger *slog.Logger) (ledger.Index, error) {
	switch cfg.Index.Driver {
	case "off":
		return nil, nil
	case "postgres":
		return ledger.NewPostgresIndex(context.Background(), cfg.Index.DSN, logger)
	default:
		return ledger.NewSQLiteIndex(cfg.IndexPath(), logger)
	}
}
