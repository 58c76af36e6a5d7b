package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ListRacesCmd creates the listRaces command
func ListRacesCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listRaces",
		Short: "List all races",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			races, err := app.Service.ListRaces(app.Ctx)
			if err != nil {
				return err
			}

			app.Logger.Debug("Races fetched", zap.Int("count", len(races)))
			writeRaceList(cmd.OutOrStdout(), races)
			return nil
		},
	}
}

// ShowRaceCmd creates the showRace command
func ShowRaceCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "showRace <race_id>",
		Short: "Show a race with its slots and ranked waitlists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			race, err := app.Service.GetRace(app.Ctx, args[0])
			if err != nil {
				return err
			}

			writeRace(cmd.OutOrStdout(), race.Read())
			return nil
		},
	}
}
