package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mirrornode/mirrornode/internal/ledger"
)

func newLogsCmd() *cobra.Command {
	var subject, verdict, since string
	var limit int
	var scan bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Query the audit ledger",
		Example: `  mirrornode logs
  mirrornode logs --subject mirror-core
  mirrornode logs --verdict FAILURE
  mirrornode logs --since 1h
  mirrornode logs --scan`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if verdict != "" && !ledger.Verdict(verdict).Valid() {
				return fmt.Errorf("invalid verdict %q", verdict)
			}

			var sinceTime string
			if since != "" {
				dur, err := time.ParseDuration(since)
				if err != nil {
					return fmt.Errorf("invalid duration %q: %w", since, err)
				}
				sinceTime = time.Now().Add(-dur).UTC().Format(time.RFC3339)
			}

			opts := ledger.QueryOpts{
				Subject: subject,
				Verdict: ledger.Verdict(verdict),
				Since:   sinceTime,
				Limit:   limit,
			}

			logger := newLogger("error")
			var records []ledger.Record
			if scan || cfg.Index.Driver == "off" {
				records, err = ledger.Scan(cfg.CanonRoot, opts)
			} else {
				idx, ierr := openIndex(cfg, logger)
				if ierr != nil {
					// Fall back to walking the dossier shards directly.
					records, err = ledger.Scan(cfg.CanonRoot, opts)
				} else {
					defer idx.Close() //nolint:errcheck // read path
					records, err = idx.Query(opts)
				}
			}
			if err != nil {
				return err
			}

			if len(records) == 0 {
				fmt.Println("No audit records found.")
				return nil
			}

			if !term.IsTerminal(int(os.Stdout.Fd())) {
				color.NoColor = true
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "TIME\tSUBJECT\tEVENT\tACTOR\tVERDICT\tDURATION\tERROR\n") //nolint:errcheck // CLI output
			for _, r := range records {
				errText := ""
				if r.Evidence.Error != nil {
					errText = *r.Evidence.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%dms\t%s\n", //nolint:errcheck // CLI output
					r.Timestamp, r.Subject, r.EventType, r.Actor,
					colorVerdict(r.Verdict), r.Evidence.DurationMs, errText)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "filter by audited subject")
	cmd.Flags().StringVar(&verdict, "verdict", "", "filter by verdict")
	cmd.Flags().StringVar(&since, "since", "", "show records since duration (e.g. 1h, 30m)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max records to return")
	cmd.Flags().BoolVar(&scan, "scan", false, "walk the dossier files instead of the index")
	return cmd
}

func colorVerdict(v ledger.Verdict) string {
	switch v {
	case ledger.VerdictSuccess:
		return color.GreenString(string(v))
	case ledger.VerdictFailure:
		return color.RedString(string(v))
	case ledger.VerdictBlocked:
		return color.YellowString(string(v))
	case ledger.VerdictEscalated:
		return color.MagentaString(string(v))
	}
	return string(v)
}
