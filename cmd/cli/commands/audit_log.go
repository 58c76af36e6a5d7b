package commands

import (
	"github.com/spf13/cobra"
)

// AuditLogCmd creates the auditLog command
func AuditLogCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "auditLog <race_id>",
		Short: "Show every committed change to a race",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := app.Service.AuditLog(app.Ctx, args[0])
			if err != nil {
				return err
			}

			writeAuditLog(cmd.OutOrStdout(), entries)
			return nil
		},
	}
}
