package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RegisterCmd creates the register command
func RegisterCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "register <race_id> <slot_id> [member_id]",
		Short: "Register a member for a slot (defaults to the current actor)",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			memberID := app.Actor
			if len(args) > 2 {
				memberID = args[2]
			}
			if memberID == "" {
				return fmt.Errorf("member_id is required when no --actor is set")
			}

			app.Logger.Debug("register command",
				zap.String("race_id", args[0]),
				zap.String("slot_id", args[1]),
				zap.String("member_id", memberID))

			result, err := app.Service.RegisterMember(app.Ctx, app.Roster, args[0], memberID, args[1], app.Auth())
			if err != nil {
				return fmt.Errorf("failed to register: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), registrationMessage(result.Race, result.Outcome))
			return nil
		},
	}
}
