package commands

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
)

// AddSlotCmd creates the addSlot command
func AddSlotCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addSlot <race_id> <group> <name> <capacity>",
		Short: "Add a slot to a race",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			capacity, err := strconv.ParseUint(args[3], 10, 32)
			if err != nil {
				return fmt.Errorf("capacity must be a non-negative number: %w", err)
			}
			gender, _ := cmd.Flags().GetString("gender")
			slotID, _ := cmd.Flags().GetString("id")

			app.Logger.Debug("addSlot command",
				zap.String("race_id", args[0]),
				zap.String("group", args[1]),
				zap.String("name", args[2]),
				zap.Uint64("capacity", capacity),
				zap.String("gender", gender))

			slot := allocator.Slot{
				ID:          slotID,
				Group:       args[1],
				Name:        args[2],
				Capacity:    uint(capacity),
				GenderLimit: allocator.Gender(gender),
			}
			result, err := app.Service.AddSlot(app.Ctx, args[0], slot, uuid.NewString, app.Auth())
			if err != nil {
				return fmt.Errorf("failed to add slot: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Added slot %s (%s / %s, capacity %d). Race is %s\n",
				result.Outcome.Slot.ID, result.Outcome.Slot.Group, result.Outcome.Slot.Name,
				result.Outcome.Slot.Capacity, result.Race.Status)
			return nil
		},
	}

	cmd.Flags().String("gender", string(allocator.GenderAny), "Gender limit: ANY, M or F")
	cmd.Flags().String("id", "", "Slot ID (generated if empty)")

	return cmd
}

// RemoveSlotCmd creates the removeSlot command
func RemoveSlotCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "removeSlot <race_id> <slot_id>",
		Short: "Remove a slot from a race",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cascade, _ := cmd.Flags().GetBool("cascade")

			app.Logger.Debug("removeSlot command",
				zap.String("race_id", args[0]),
				zap.String("slot_id", args[1]),
				zap.Bool("cascade", cascade))

			result, err := app.Service.RemoveSlot(app.Ctx, args[0], args[1], cascade, app.Auth())
			if err != nil {
				return fmt.Errorf("failed to remove slot: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Removed slot %s\n", result.Outcome.Slot.ID)
			for _, o := range result.Outcome.Withdrawn {
				fmt.Fprintf(out, "  withdrew %s (%s)\n", o.DisplayName, o.CandidateID)
			}
			for _, e := range result.Outcome.Cancelled {
				fmt.Fprintf(out, "  cancelled waitlist entry for %s (%s)\n", e.DisplayName, e.CandidateID)
			}
			return nil
		},
	}

	cmd.Flags().Bool("cascade", false, "Withdraw occupants and waitlisted candidates instead of refusing")

	return cmd
}
