package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
)

// AuditEntry represents one committed change to a race
type AuditEntry struct {
	ID          string
	RaceID      string
	RaceVersion int64
	Operation   string
	Kind        allocator.EventKind
	SlotID      string
	CandidateID string
	ActorID     string
	Bypassed    bool
	Detail      string
	At          time.Time
}

// AuditEntriesFromEvents builds the audit entries for a committed operation
func AuditEntriesFromEvents(raceID string, version int64, operation string, events []allocator.Event) []AuditEntry {
	entries := make([]AuditEntry, 0, len(events))
	for _, e := range events {
		entries = append(entries, AuditEntry{
			ID:          uuid.NewString(),
			RaceID:      raceID,
			RaceVersion: version,
			Operation:   operation,
			Kind:        e.Kind,
			SlotID:      e.SlotID,
			CandidateID: e.CandidateID,
			ActorID:     e.ActorID,
			Bypassed:    e.Bypassed,
			Detail:      e.Detail,
			At:          allocator.Truncate(e.At),
		})
	}
	return entries
}
