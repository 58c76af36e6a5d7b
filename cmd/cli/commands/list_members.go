package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ListMembersCmd creates the listMembers command
func ListMembersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listMembers",
		Short: "List all members from the roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			members, err := app.Roster.ListMembers(app.Ctx)
			if err != nil {
				return fmt.Errorf("failed to list members: %w", err)
			}

			app.Logger.Info("Members fetched successfully", zap.Int("count", len(members)))
			writeMembers(cmd.OutOrStdout(), members)
			return nil
		},
	}
}
