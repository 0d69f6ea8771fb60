package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirrornode/mirrornode/internal/config"
	"github.com/mirrornode/mirrornode/internal/server"
	"github.com/mirrornode/mirrornode/internal/tracer"
)

func newServeCmd() *cobra.Command {
	var port int
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mirrornode gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			logger := newLogger(cfg.Server.LogLevel)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := tracer.Setup(ctx, cfg.Tracing)
			if err != nil {
				return fmt.Errorf("setting up tracing: %w", err)
			}
			defer shutdownTracing(context.Background()) //nolint:errcheck // best-effort flush

			srv, err := server.NewServer(ctx, cfg, logger)
			if err != nil {
				return err
			}

			printBanner(cfg)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server port")
	cmd.Flags().StringVar(&bind, "bind", "", "address to bind (default: 127.0.0.1)")
	return cmd
}

func printBanner(cfg *config.Config) {
	bindAddr := cfg.Server.Bind
	if bindAddr == "" {
		bindAddr = "127.0.0.1"
	}

	fmt.Println()
	fmt.Println("  mirrornode gateway")
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Gateway:  http://%s:%d/theia\n", bindAddr, cfg.Server.Port)
	fmt.Printf("  Events:   http://%s:%d/events/recent\n", bindAddr, cfg.Server.Port)
	fmt.Printf("  Health:   http://%s:%d/health\n", bindAddr, cfg.Server.Port)
	fmt.Printf("  Metrics:  http://%s:%d/metrics\n", bindAddr, cfg.Server.Port)
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Environment: %s\n", cfg.Environment)
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop.")
	fmt.Println()
}
