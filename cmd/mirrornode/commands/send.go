package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirrornode/mirrornode/sdk"
)

func newSendCmd() *cobra.Command {
	var url, eventType, source, data, parentID string
	var tags []string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an event to a running gateway",
		Example: `  mirrornode send --type INTEGRATION --data '{"hello":"world"}'
  mirrornode send --type ANALYSIS --source starter-kit --tags smoke,ci`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload any
			if data != "" {
				if err := json.Unmarshal([]byte(data), &payload); err != nil {
					return fmt.Errorf("--data must be valid JSON: %w", err)
				}
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			client := sdk.NewClient(url, source)
			res, err := client.SendEvent(ctx, sdk.Event{
				Type:    eventType,
				Meta:    sdk.Meta{ParentID: parentID},
				Payload: sdk.Payload{Data: payload, Tags: tags},
			})
			if err != nil {
				return err
			}

			out, _ := json.MarshalIndent(res, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://127.0.0.1:8420", "gateway base URL")
	cmd.Flags().StringVar(&eventType, "type", "", "event type (INTEGRATION, EXECUTION, ANALYSIS, REFLECTION, MANIFESTATION)")
	cmd.Flags().StringVar(&source, "source", "mirrornode-cli", "event source label")
	cmd.Flags().StringVar(&data, "data", "", "event payload as JSON")
	cmd.Flags().StringVar(&parentID, "parent", "", "causal predecessor event id")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "payload tags")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
