package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/race-roster/pkg/core/services"
)

// CreateRaceCmd creates the createRace command
func CreateRaceCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "createRace <race_type> <name> <date>",
		Short: "Create a race from a template (date as YYYY-MM-DD)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := time.Parse("2006-01-02", args[2])
			if err != nil {
				return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
			}

			app.Logger.Debug("createRace command",
				zap.String("race_type", args[0]),
				zap.String("name", args[1]),
				zap.Time("date", date))

			result, err := services.CreateRace(app.Ctx, app.Database, app.Catalog, app.Logger, args[0], args[1], date, app.Auth())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Race created successfully!\n")
			fmt.Fprintf(out, "Capacity: %d seats across %d slots\n", result.Capacity, len(result.Race.Slots))
			writeRace(out, result.Race)
			return nil
		},
	}
}
