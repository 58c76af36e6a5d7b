package allocator

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Register applies DefaultEngine.Register to the race
func (r Race) Register(req RegisterRequest) (Race, RegistrationOutcome, error) {
	return DefaultEngine.Register(r, req)
}

// Withdraw applies DefaultEngine.Withdraw to the race
func (r Race) Withdraw(req WithdrawRequest) (Race, WithdrawOutcome, error) {
	return DefaultEngine.Withdraw(r, req)
}

// PromoteManually applies DefaultEngine.PromoteManually to the race
func (r Race) PromoteManually(req PromoteRequest) (Race, PromotionOutcome, error) {
	return DefaultEngine.PromoteManually(r, req)
}

// SetRoleTag applies DefaultEngine.SetRoleTag to the race
func (r Race) SetRoleTag(slotID, candidateID, roleTag string) (Race, RoleTagOutcome, error) {
	return DefaultEngine.SetRoleTag(r, slotID, candidateID, roleTag)
}

// AddSlot appends a new, empty slot
func (r Race) AddSlot(slot Slot) (Race, SlotOutcome, error) {
	if slot.ID == "" || slot.Name == "" {
		return r, SlotOutcome{}, fmt.Errorf("%w: id and name are required", ErrInvalidSlot)
	}
	if len(slot.Occupants) > 0 {
		return r, SlotOutcome{}, fmt.Errorf("%w: new slots must be empty", ErrInvalidSlot)
	}
	if slot.GenderLimit == "" {
		slot.GenderLimit = GenderAny
	}
	if !slot.GenderLimit.IsValid() {
		return r, SlotOutcome{}, fmt.Errorf("%w: unknown gender limit %q", ErrInvalidSlot, slot.GenderLimit)
	}
	if r.slotIndex(slot.ID) >= 0 {
		return r, SlotOutcome{}, fmt.Errorf("%w: %s", ErrDuplicateSlot, slot.ID)
	}

	next := r.clone()
	next.Slots = append(next.Slots, slot)
	return next.withDerivedStatus(), SlotOutcome{Slot: slot}, nil
}

// RemoveSlot deletes a slot. A slot with occupants or waitlist entries is only
// removed when cascade is set; every cascaded candidate is reported on the outcome.
func (r Race) RemoveSlot(slotID string, cascade bool) (Race, SlotOutcome, error) {
	i := r.slotIndex(slotID)
	if i < 0 {
		return r, SlotOutcome{}, fmt.Errorf("%w: %s", ErrSlotNotFound, slotID)
	}

	slot := r.Slots[i]
	queued := RankedForSlot(r.Waitlist, slotID)
	if !cascade && (len(slot.Occupants) > 0 || len(queued) > 0) {
		return r, SlotOutcome{}, fmt.Errorf("%w: %s has %d occupants and %d waitlisted",
			ErrSlotNotEmpty, slotID, len(slot.Occupants), len(queued))
	}

	next := r.clone()
	next.Slots = slices.Delete(next.Slots, i, i+1)
	next.Waitlist = slices.DeleteFunc(next.Waitlist, func(e WaitlistEntry) bool { return e.SlotID == slotID })

	return next.withDerivedStatus(), SlotOutcome{
		Slot:      slot,
		Removed:   true,
		Withdrawn: slices.Clone(slot.Occupants),
		Cancelled: queued,
	}, nil
}

// SetStatus changes the race status; only administrators may do so
func (r Race) SetStatus(status RaceStatus, auth AuthorizationContext) (Race, StatusOutcome, error) {
	if !auth.Can(CapAdmin) {
		return r, StatusOutcome{}, fmt.Errorf("%w: %q cannot change race status", ErrNotAuthorized, auth.ActorID)
	}
	if !status.IsValid() {
		return r, StatusOutcome{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	outcome := StatusOutcome{Previous: r.Status, Current: status}
	if r.Status == status {
		return r, outcome, nil
	}
	next := r.clone()
	next.Status = status
	return next, outcome, nil
}

// Read returns a deep copy that shares no memory with the race
func (r Race) Read() Race {
	return r.clone()
}

// Slot returns the slot with the given ID
func (r Race) Slot(slotID string) (Slot, bool) {
	i := r.slotIndex(slotID)
	if i < 0 {
		return Slot{}, false
	}
	return r.Slots[i], true
}

// LegacyOccupants returns occupants decoded from legacy free-text entries.
// Their identities are synthetic and need reconciling by an administrator.
func (r Race) LegacyOccupants() []Occupant {
	var legacy []Occupant
	for _, slot := range r.Slots {
		for _, occupant := range slot.Occupants {
			if occupant.IsLegacyImport {
				legacy = append(legacy, occupant)
			}
		}
	}
	return legacy
}

// FillFreeSeats promotes the highest-ranked waitlist entries into any slot
// that has a free seat while candidates are queued for it. The engine never
// leaves a race in that state, but documents imported from older rosters can
// arrive that way. The input race is not mutated.
func (r Race) FillFreeSeats(at time.Time) (Race, FillOutcome) {
	var outcome FillOutcome
	next := r
	for i := range r.Slots {
		for !next.Slots[i].IsFull() {
			j, ok := NextForSlot(next.Waitlist, next.Slots[i].ID)
			if !ok {
				break
			}
			if len(outcome.Promoted) == 0 {
				next = r.clone()
			}
			occupant := next.Waitlist[j].toOccupant(at)
			updated, err := next.Slots[i].AddOccupant(occupant)
			if err != nil {
				break
			}
			next.Slots[i] = updated
			next.Waitlist = slices.Delete(next.Waitlist, j, j+1)
			outcome.Promoted = append(outcome.Promoted, SlotOccupant{SlotID: updated.ID, Occupant: occupant})
		}
	}
	if len(outcome.Promoted) == 0 {
		return r, outcome
	}
	return next.withDerivedStatus(), outcome
}

// CheckInvariants verifies every slot is within capacity and the waitlist is
// consistent with the slots. Stores call it before persisting.
func (r Race) CheckInvariants() error {
	var errs []error
	slotIDs := make(map[string]bool, len(r.Slots))

	for _, slot := range r.Slots {
		if slotIDs[slot.ID] {
			errs = append(errs, fmt.Errorf("duplicate slot id %s", slot.ID))
		}
		slotIDs[slot.ID] = true

		if uint(len(slot.Occupants)) > slot.Capacity {
			errs = append(errs, fmt.Errorf("slot %s holds %d occupants over capacity %d", slot.ID, len(slot.Occupants), slot.Capacity))
		}

		seen := make(map[string]bool, len(slot.Occupants))
		for _, occupant := range slot.Occupants {
			if seen[occupant.CandidateID] {
				errs = append(errs, fmt.Errorf("slot %s holds %s twice", slot.ID, occupant.CandidateID))
			}
			seen[occupant.CandidateID] = true
		}
	}

	queued := make(map[string]bool, len(r.Waitlist))
	for _, entry := range r.Waitlist {
		if !slotIDs[entry.SlotID] {
			errs = append(errs, fmt.Errorf("waitlist entry %s references unknown slot %s", entry.CandidateID, entry.SlotID))
			continue
		}
		key := entry.SlotID + "/" + entry.CandidateID
		if queued[key] {
			errs = append(errs, fmt.Errorf("%s is waitlisted twice for slot %s", entry.CandidateID, entry.SlotID))
		}
		queued[key] = true

		slot, _ := r.Slot(entry.SlotID)
		if slot.HasOccupant(entry.CandidateID) {
			errs = append(errs, fmt.Errorf("%s is both occupant and waitlisted for slot %s", entry.CandidateID, entry.SlotID))
		}
	}

	for _, slot := range r.Slots {
		if _, queued := NextForSlot(r.Waitlist, slot.ID); queued && !slot.IsFull() {
			errs = append(errs, fmt.Errorf("slot %s has %d free seats while candidates are waitlisted for it", slot.ID, slot.Remaining()))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvariantViolation, errors.Join(errs...))
	}
	return nil
}

// withDerivedStatus flips OPEN to FULL once every slot is full and back again
// when a seat frees. Statuses set by administrators are left alone.
func (r Race) withDerivedStatus() Race {
	switch r.Status {
	case StatusOpen:
		if r.allSlotsFull() {
			r.Status = StatusFull
		}
	case StatusFull:
		if !r.allSlotsFull() {
			r.Status = StatusOpen
		}
	}
	return r
}

func (r Race) allSlotsFull() bool {
	if len(r.Slots) == 0 {
		return false
	}
	for _, slot := range r.Slots {
		if !slot.IsFull() {
			return false
		}
	}
	return true
}
