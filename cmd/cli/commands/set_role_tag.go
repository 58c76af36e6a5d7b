package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// SetRoleTagCmd creates the setRoleTag command
func SetRoleTagCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setRoleTag <race_id> <slot_id> <candidate_id> [role_tag]",
		Short: "Tag an occupant with a role such as team leader (omit the tag to clear it)",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var roleTag string
			if len(args) > 3 {
				roleTag = args[3]
			}

			app.Logger.Debug("setRoleTag command",
				zap.String("race_id", args[0]),
				zap.String("slot_id", args[1]),
				zap.String("candidate_id", args[2]),
				zap.String("role_tag", roleTag))

			result, err := app.Service.SetRoleTag(app.Ctx, args[0], args[1], args[2], roleTag, app.Auth())
			if err != nil {
				return fmt.Errorf("failed to set role tag: %w", err)
			}

			out := cmd.OutOrStdout()
			o := result.Outcome
			switch {
			case !o.Changed:
				fmt.Fprintln(out, "No change.")
			case o.Current == "":
				fmt.Fprintf(out, "✓ Cleared role tag %q from %s\n", o.Previous, o.CandidateID)
			default:
				fmt.Fprintf(out, "✓ %s tagged as %q\n", o.CandidateID, o.Current)
			}
			return nil
		},
	}
}
