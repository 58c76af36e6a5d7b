package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
	"github.com/jakechorley/race-roster/pkg/core/model"
	"github.com/jakechorley/race-roster/pkg/db"
)

const timestampLayout = "2006-01-02 15:04:05.000"

func writeRaceList(w io.Writer, races []allocator.Race) {
	if len(races) == 0 {
		fmt.Fprintln(w, "No races found.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-10s  %-12s  %-9s  %s\n", "ID", "Date", "Status", "Filled", "Name")
	for _, race := range races {
		filled, capacity := 0, uint(0)
		for _, slot := range race.Slots {
			filled += len(slot.Occupants)
			capacity += slot.Capacity
		}
		fmt.Fprintf(w, "%-36s  %-10s  %-12s  %-9s  %s\n",
			race.ID,
			race.Date.Format("2006-01-02"),
			race.Status,
			fmt.Sprintf("%d/%d", filled, capacity),
			race.Name,
		)
	}
}

func writeRace(w io.Writer, race allocator.Race) {
	fmt.Fprintf(w, "\n%s (%s)\n", race.Name, race.Date.Format("Mon 02 Jan 2006"))
	fmt.Fprintf(w, "ID: %s  Type: %s  Status: %s  Version: %d\n", race.ID, race.Type, race.Status, race.Version)
	if race.RequiresEquipment {
		fmt.Fprintln(w, "Own equipment required")
	}
	if !race.AllowWaitlist {
		fmt.Fprintln(w, "Waitlist disabled")
	}
	fmt.Fprintln(w)

	for _, slot := range race.Slots {
		fmt.Fprintf(w, "[%s] %s / %s  %d/%d", slot.ID, slot.Group, slot.Name, len(slot.Occupants), slot.Capacity)
		if slot.GenderLimit != allocator.GenderAny {
			fmt.Fprintf(w, "  gender %s", slot.GenderLimit)
		}
		fmt.Fprintln(w)

		for _, o := range slot.Occupants {
			fmt.Fprintf(w, "    - %s (%s)%s\n", o.DisplayName, o.CandidateID, occupantNotes(o))
		}

		ranked := allocator.RankedForSlot(race.Waitlist, slot.ID)
		for i, e := range ranked {
			fmt.Fprintf(w, "    %d. %s (%s) tier %d, requested %s\n",
				i+1, e.DisplayName, e.CandidateID, e.Tier, e.RequestedAt.Format(timestampLayout))
		}
	}
	fmt.Fprintln(w)
}

func occupantNotes(o allocator.Occupant) string {
	var notes []string
	if o.RoleTag != "" {
		notes = append(notes, o.RoleTag)
	}
	if o.IsVIP {
		notes = append(notes, "VIP")
	}
	if o.IsNew {
		notes = append(notes, "new")
	}
	if o.IsLegacyImport {
		notes = append(notes, fmt.Sprintf("unverified import of %q", o.LegacySource))
	}
	if len(notes) == 0 {
		return ""
	}
	return " [" + strings.Join(notes, ", ") + "]"
}

// waitlistPosition returns the 1-based position of a candidate in a slot's ranked waitlist, or 0
func waitlistPosition(race allocator.Race, slotID, candidateID string) int {
	for i, e := range allocator.RankedForSlot(race.Waitlist, slotID) {
		if e.CandidateID == candidateID {
			return i + 1
		}
	}
	return 0
}

func registrationMessage(race allocator.Race, o allocator.RegistrationOutcome) string {
	var msg string
	switch o.Status {
	case allocator.StatusAccepted:
		msg = fmt.Sprintf("✓ %s accepted into %s", o.CandidateID, o.SlotID)
	case allocator.StatusWaitlisted:
		msg = fmt.Sprintf("⏳ %s waitlisted for %s (position %d)", o.CandidateID, o.SlotID, waitlistPosition(race, o.SlotID, o.CandidateID))
	default:
		msg = fmt.Sprintf("✗ %s rejected for %s: %s", o.CandidateID, o.SlotID, o.RejectReason)
		if failed := o.Eligibility.Failed(); len(failed) > 0 && !o.EligibilityBypassed() {
			msg += " (" + strings.Join(failed, ", ") + ")"
		}
	}
	if o.EligibilityBypassed() {
		msg += fmt.Sprintf(" [eligibility bypassed: %s]", strings.Join(o.Eligibility.Failed(), ", "))
	}
	return msg
}

func writeAuditLog(w io.Writer, entries []db.AuditEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No audit entries.")
		return
	}

	for _, e := range entries {
		line := fmt.Sprintf("%s  v%-3d  %-14s  %-12s", e.At.Format(timestampLayout), e.RaceVersion, e.Kind, e.Operation)
		if e.SlotID != "" {
			line += "  slot=" + e.SlotID
		}
		if e.CandidateID != "" {
			line += "  candidate=" + e.CandidateID
		}
		if e.ActorID != "" {
			line += "  by=" + e.ActorID
		}
		if e.Detail != "" {
			line += "  " + e.Detail
		}
		fmt.Fprintln(w, line)
	}
}

func writeMembers(w io.Writer, members []model.Member) {
	fmt.Fprintf(w, "\nFound %d members:\n\n", len(members))
	for _, m := range members {
		var flags []string
		if m.IsVIP {
			flags = append(flags, "VIP")
		}
		if m.IsLeader {
			flags = append(flags, "leader")
		}
		if m.IsExperienced {
			flags = append(flags, "experienced")
		}
		if m.IsNew {
			flags = append(flags, "new")
		}

		line := fmt.Sprintf("- %s %s (%s) - %s", m.FirstName, m.LastName, m.ID, m.MembershipStatus)
		if !m.LicenseExpiry.IsZero() {
			line += " - licence to " + m.LicenseExpiry.Format("2006-01-02")
		}
		if len(flags) > 0 {
			line += " [" + strings.Join(flags, ", ") + "]"
		}
		fmt.Fprintln(w, line)
	}
}
