package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/race-roster/pkg/clients/sheetsclient"
)

// PublishRaceCmd creates the publishRace command
func PublishRaceCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publishRace <race_id>",
		Short: "Publish a race roster to Google Sheets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Sheets == nil || app.Cfg.Roster.PublishSheetID == "" {
				return errors.New("publishing needs roster.publishSheetID in the config")
			}

			race, err := app.Service.GetRace(app.Ctx, args[0])
			if err != nil {
				return err
			}

			app.Logger.Debug("publishRace command",
				zap.String("race_id", race.ID),
				zap.String("sheet_id", app.Cfg.Roster.PublishSheetID))

			if err := app.Sheets.PublishRace(app.Ctx, app.Cfg.Roster.PublishSheetID, race.Read()); err != nil {
				return fmt.Errorf("failed to publish race: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Race published to tab %q\n", sheetsclient.RaceTabTitle(race))
			return nil
		},
	}
}
