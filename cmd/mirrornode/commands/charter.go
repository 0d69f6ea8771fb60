package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mirrornode/mirrornode/internal/identity"
)

func newCharterCmd() *cobra.Command {
	var initCharter bool

	cmd := &cobra.Command{
		Use:   "charter <subject>",
		Short: "Show (or create) the charter governing a subject",
		Example: `  mirrornode charter mirror-core
  mirrornode charter mirror-core --init`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			subject := args[0]
			resolver := identity.NewResolver(cfg.CanonRoot)
			path := resolver.CharterPath(subject)

			if initCharter {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("charter already exists: %s", path)
				}
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return fmt.Errorf("creating charter dir: %w", err)
				}
				skeleton := fmt.Sprintf("# %s Charter\n\n## Purpose\n\n## Boundaries\n\n## Escalation\n", identity.CharterKey(subject))
				if err := os.WriteFile(path, []byte(skeleton), 0o644); err != nil {
					return fmt.Errorf("writing charter: %w", err)
				}
				fmt.Printf("created %s\n", path)
			}

			hash := resolver.CharterHash(subject)
			status := "present"
			if hash == identity.SentinelUnchartered {
				status = "missing (records will carry " + identity.SentinelUnchartered + ")"
			}

			fmt.Printf("subject:  %s\n", subject)
			fmt.Printf("key:      %s\n", identity.CharterKey(subject))
			fmt.Printf("path:     %s\n", path)
			fmt.Printf("status:   %s\n", status)
			if hash != identity.SentinelUnchartered {
				fmt.Printf("hash:     %s\n", hash)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&initCharter, "init", false, "create a skeleton charter if missing")
	return cmd
}
