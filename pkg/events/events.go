package events

import (
	"time"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
)

// OutcomeQueue is the durable queue notification dispatchers consume
const OutcomeQueue = "race.outcomes"

// OutcomeEvent is the message published for each committed state change
type OutcomeEvent struct {
	RaceID      string              `json:"raceId"`
	RaceName    string              `json:"raceName"`
	RaceDate    string              `json:"raceDate"`
	RaceVersion int64               `json:"raceVersion"`
	Kind        allocator.EventKind `json:"kind"`
	SlotID      string              `json:"slotId,omitempty"`
	SlotName    string              `json:"slotName,omitempty"`
	CandidateID string              `json:"candidateId,omitempty"`
	ActorID     string              `json:"actorId,omitempty"`
	Bypassed    bool                `json:"bypassed,omitempty"`
	Detail      string              `json:"detail,omitempty"`
	At          time.Time           `json:"at"`
}

// FromEvents converts engine events for a committed race version
func FromEvents(race allocator.Race, version int64, evts []allocator.Event) []OutcomeEvent {
	out := make([]OutcomeEvent, 0, len(evts))
	for _, e := range evts {
		oe := OutcomeEvent{
			RaceID:      race.ID,
			RaceName:    race.Name,
			RaceDate:    race.Date.Format("2006-01-02"),
			RaceVersion: version,
			Kind:        e.Kind,
			SlotID:      e.SlotID,
			CandidateID: e.CandidateID,
			ActorID:     e.ActorID,
			Bypassed:    e.Bypassed,
			Detail:      e.Detail,
			At:          e.At,
		}
		if slot, ok := race.Slot(e.SlotID); ok {
			oe.SlotName = slot.Group + "/" + slot.Name
		}
		out = append(out, oe)
	}
	return out
}
