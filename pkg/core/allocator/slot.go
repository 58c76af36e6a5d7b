package allocator

import (
	"fmt"
	"slices"
)

// IsFull returns true if the slot has no seats left
func (s Slot) IsFull() bool {
	return uint(len(s.Occupants)) >= s.Capacity
}

// Remaining returns the number of free seats (never negative)
func (s Slot) Remaining() int {
	return max(int(s.Capacity)-len(s.Occupants), 0)
}

// HasOccupant returns true if the candidate holds a seat in this slot
func (s Slot) HasOccupant(candidateID string) bool {
	return s.occupantIndex(candidateID) >= 0
}

// Occupant returns the candidate's occupant record
func (s Slot) Occupant(candidateID string) (Occupant, bool) {
	i := s.occupantIndex(candidateID)
	if i < 0 {
		return Occupant{}, false
	}
	return s.Occupants[i], true
}

// AddOccupant returns a copy of the slot with the occupant appended.
// The receiver is left untouched.
func (s Slot) AddOccupant(o Occupant) (Slot, error) {
	if s.IsFull() {
		return s, fmt.Errorf("%w: slot %s holds %d of %d", ErrCapacityExceeded, s.ID, len(s.Occupants), s.Capacity)
	}
	next := s.clone()
	next.Occupants = append(next.Occupants, o)
	return next, nil
}

// RemoveOccupant returns a copy of the slot without the candidate.
// Removing an absent candidate is a no-op.
func (s Slot) RemoveOccupant(candidateID string) Slot {
	next := s.clone()
	next.Occupants = slices.DeleteFunc(next.Occupants, func(o Occupant) bool {
		return o.CandidateID == candidateID
	})
	return next
}

func (s Slot) occupantIndex(candidateID string) int {
	return slices.IndexFunc(s.Occupants, func(o Occupant) bool { return o.CandidateID == candidateID })
}
