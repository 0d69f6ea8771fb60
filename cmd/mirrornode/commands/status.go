package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirrornode/mirrornode/internal/identity"
	"github.com/mirrornode/mirrornode/sdk"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show canon and gateway status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			charters := countFiles(filepath.Join(cfg.CanonRoot, "charters"), ".md")
			shards, records := countDossiers(filepath.Join(cfg.CanonRoot, "dossiers"))

			resolver := identity.NewResolver(cfg.CanonRoot)
			revision := resolver.Revision()

			fmt.Println()
			fmt.Println("  mirrornode status")
			fmt.Println("  ────────────────────────────────────────")
			fmt.Printf("  Canon root:    %s\n", cfg.CanonRoot)
			fmt.Printf("  Revision:      %s\n", revision)
			fmt.Printf("  Charters:      %d\n", charters)
			fmt.Printf("  Shards:        %d (%d dossier files)\n", shards, records)
			fmt.Printf("  Environment:   %s\n", cfg.Environment)
			fmt.Printf("  Index:         %s\n", cfg.Index.Driver)
			fmt.Printf("  Config:        %s\n", cfgFile)

			// Best-effort gateway probe.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			url := fmt.Sprintf("http://%s:%d", cfg.Server.Bind, cfg.Server.Port)
			if h, err := sdk.NewClient(url, "").Health(ctx); err == nil && h.OK {
				fmt.Printf("  Gateway:       up (%d recent events)\n", h.Events)
			} else {
				fmt.Printf("  Gateway:       down (%s)\n", url)
			}
			fmt.Println()
			return nil
		},
	}
}

func countFiles(dir, ext string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ext {
			n++
		}
	}
	return n
}

func countDossiers(dir string) (shards, files int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		shards++
		files += countFiles(filepath.Join(dir, e.Name()), ".json")
	}
	return shards, files
}
