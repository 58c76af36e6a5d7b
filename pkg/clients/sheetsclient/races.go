package sheetsclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
)

// RaceTabTitle names the tab a race roster is published to, e.g. "2026-11-08 City Marathon"
func RaceTabTitle(race allocator.Race) string {
	return race.Date.Format("2006-01-02") + " " + race.Name
}

// PublishRace writes the race roster to its own tab, creating the tab if needed.
// An existing tab is overwritten.
func (c *Client) PublishRace(ctx context.Context, spreadsheetID string, race allocator.Race) error {
	title := RaceTabTitle(race)

	exists, err := c.HasSheet(ctx, spreadsheetID, title)
	if err != nil {
		return err
	}
	if !exists {
		if _, err := c.CreateSheet(ctx, spreadsheetID, title); err != nil {
			return fmt.Errorf("failed to create tab: %w", err)
		}
	}

	if err := c.ReplaceValues(ctx, spreadsheetID, title, BuildRaceRows(race)); err != nil {
		return fmt.Errorf("failed to publish race %s: %w", race.ID, err)
	}
	return nil
}

// BuildRaceRows lays out a race as a header, one row per slot with its
// occupants, then one row per waitlisted candidate in promotion order
func BuildRaceRows(race allocator.Race) [][]interface{} {
	maxOccupants := 0
	for _, slot := range race.Slots {
		maxOccupants = max(maxOccupants, int(slot.Capacity), len(slot.Occupants))
	}

	rows := [][]interface{}{
		{race.Name, race.Date.Format("Mon Jan 02 2006"), string(race.Status)},
		{},
	}

	header := []interface{}{"Group", "Slot", "Capacity", "Gender"}
	for i := 0; i < maxOccupants; i++ {
		header = append(header, fmt.Sprintf("Member %d", i+1))
	}
	rows = append(rows, header)

	for _, slot := range race.Slots {
		row := []interface{}{slot.Group, slot.Name, fmt.Sprintf("%d/%d", len(slot.Occupants), slot.Capacity), string(slot.GenderLimit)}
		for i := 0; i < maxOccupants; i++ {
			if i < len(slot.Occupants) {
				row = append(row, occupantLabel(slot.Occupants[i]))
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}

	if len(race.Waitlist) == 0 {
		return rows
	}

	rows = append(rows, []interface{}{}, []interface{}{"Waitlist", "Slot", "Rank", "Requested"})
	for _, slot := range race.Slots {
		for rank, entry := range allocator.RankedForSlot(race.Waitlist, slot.ID) {
			rows = append(rows, []interface{}{
				entry.DisplayName,
				slot.Group + "/" + slot.Name,
				rank + 1,
				entry.RequestedAt.Format("2006-01-02 15:04:05"),
			})
		}
	}
	return rows
}

func occupantLabel(o allocator.Occupant) string {
	var tags []string
	if o.RoleTag != "" {
		tags = append(tags, o.RoleTag)
	}
	if o.IsVIP {
		tags = append(tags, "VIP")
	}
	if o.IsNew {
		tags = append(tags, "new")
	}
	if o.IsLegacyImport {
		tags = append(tags, "unverified")
	}
	if len(tags) == 0 {
		return o.DisplayName
	}
	return o.DisplayName + " (" + strings.Join(tags, ", ") + ")"
}
