package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// PromoteCmd creates the promote command
func PromoteCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "promote <race_id> <slot_id> <candidate_id>",
		Short: "Promote a waitlisted candidate out of rank order",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("promote command",
				zap.String("race_id", args[0]),
				zap.String("slot_id", args[1]),
				zap.String("candidate_id", args[2]))

			result, err := app.Service.PromoteManually(app.Ctx, args[0], args[1], args[2], app.Auth())
			if err != nil {
				return fmt.Errorf("failed to promote: %w", err)
			}

			o := result.Outcome
			fmt.Fprintf(cmd.OutOrStdout(), "⬆ %s promoted into %s (was position %d) by %s\n",
				o.Occupant.CandidateID, o.SlotID, o.Rank+1, o.PromotedBy)
			return nil
		},
	}
}
