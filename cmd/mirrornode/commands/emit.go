package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirrornode/mirrornode/internal/ledger"
)

func newEmitCmd() *cobra.Command {
	var eventType, actor, verdict, errText, charterOverride string
	var durationMs int64

	cmd := &cobra.Command{
		Use:   "emit <subject>",
		Short: "Append one audit record to the ledger",
		Long: `Append one audit record to the execution ledger.

A non-zero exit means the record was NOT written; the audited operation
must not be treated as complete.`,
		Example: `  mirrornode emit mirror-core --type deploy --verdict SUCCESS
  mirrornode emit mirror-core --type deploy --verdict FAILURE --error "rollout timed out" --duration-ms 42000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			v := ledger.Verdict(verdict)
			if !v.Valid() {
				return fmt.Errorf("invalid verdict %q (want SUCCESS, FAILURE, BLOCKED, or ESCALATED)", verdict)
			}

			logger := newLogger("error")
			idx, err := openIndex(cfg, logger)
			if err != nil {
				// The index is an accelerator; emitting must not depend on it.
				logger.Warn("ledger index unavailable", "error", err)
				idx = nil
			}
			opts := []ledger.WriterOption{}
			if idx != nil {
				defer idx.Close() //nolint:errcheck // best-effort flush
				opts = append(opts, ledger.WithIndex(idx))
			}
			writer := ledger.NewWriter(cfg.CanonRoot, logger, opts...)

			var evErr *string
			if errText != "" {
				evErr = ledger.StringPtr(errText)
			}

			auditID, err := writer.Emit(ledger.BuildParams{
				Subject:         args[0],
				EventType:       eventType,
				Actor:           actor,
				Verdict:         v,
				CharterOverride: charterOverride,
				Evidence: ledger.Evidence{
					DurationMs: durationMs,
					Error:      evErr,
				},
			})
			if err != nil {
				return err
			}

			fmt.Printf("audit_id: %s\n", auditID)
			return nil
		},
	}

	cmd.Flags().StringVar(&eventType, "type", "execution", "event category")
	cmd.Flags().StringVar(&actor, "actor", "", "initiating principal (default: system)")
	cmd.Flags().StringVar(&verdict, "verdict", "", "SUCCESS, FAILURE, BLOCKED, or ESCALATED")
	cmd.Flags().StringVar(&errText, "error", "", "failure message for non-SUCCESS verdicts")
	cmd.Flags().Int64Var(&durationMs, "duration-ms", 0, "operation duration in milliseconds")
	cmd.Flags().StringVar(&charterOverride, "charter-override", "", "bypass the charter lookup with this hash")
	_ = cmd.MarkFlagRequired("verdict")
	return cmd
}
