package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
)

// ActorCmd creates the actor command, which shows or switches who commands act as
func ActorCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "actor [member_id]",
		Short: "Show or switch the member commands act as",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				app.Actor = args[0]
			}

			auth := app.Auth()
			var caps []string
			for _, c := range []allocator.Capability{allocator.CapAdmin, allocator.CapPromote, allocator.CapBypassEligibility} {
				if auth.Can(c) {
					caps = append(caps, string(c))
				}
			}
			if len(caps) == 0 {
				caps = []string{"member"}
			}

			actor := app.Actor
			if actor == "" {
				actor = "(none)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Acting as %s [%s]\n", actor, strings.Join(caps, ", "))
			return nil
		},
	}
}
