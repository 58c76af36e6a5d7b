package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
)

// SetStatusCmd creates the setStatus command
func SetStatusCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setStatus <race_id> <status>",
		Short: "Set the race status (OPEN, NEGOTIATING, SUBMITTED, FULL, CANCELLED, SHORTAGE)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := allocator.RaceStatus(strings.ToUpper(args[1]))

			app.Logger.Debug("setStatus command",
				zap.String("race_id", args[0]),
				zap.String("status", string(status)))

			result, err := app.Service.SetStatus(app.Ctx, args[0], status, app.Auth())
			if err != nil {
				return fmt.Errorf("failed to set status: %w", err)
			}

			o := result.Outcome
			if o.Previous == o.Current {
				fmt.Fprintf(cmd.OutOrStdout(), "Race is already %s\n", o.Current)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Race status %s -> %s\n", o.Previous, o.Current)
			return nil
		},
	}
}
