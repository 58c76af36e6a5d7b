package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// WithdrawCmd creates the withdraw command
func WithdrawCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <race_id> <slot_id> [candidate_id]",
		Short: "Withdraw from a slot or its waitlist (defaults to the current actor)",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			candidateID := app.Actor
			if len(args) > 2 {
				candidateID = args[2]
			}
			if candidateID == "" {
				return fmt.Errorf("candidate_id is required when no --actor is set")
			}

			app.Logger.Debug("withdraw command",
				zap.String("race_id", args[0]),
				zap.String("slot_id", args[1]),
				zap.String("candidate_id", candidateID))

			result, err := app.Service.Withdraw(app.Ctx, args[0], candidateID, args[1], app.Auth())
			if err != nil {
				return fmt.Errorf("failed to withdraw: %w", err)
			}

			out := cmd.OutOrStdout()
			o := result.Outcome
			if o.WasOccupant {
				fmt.Fprintf(out, "✓ %s released their seat in %s\n", o.CandidateID, o.SlotID)
			} else {
				fmt.Fprintf(out, "✓ %s left the waitlist for %s\n", o.CandidateID, o.SlotID)
			}
			if o.Promoted != nil {
				fmt.Fprintf(out, "⬆ %s (%s) promoted from the waitlist\n", o.Promoted.DisplayName, o.Promoted.CandidateID)
			}
			return nil
		},
	}
}
