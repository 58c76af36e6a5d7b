package allocator

import (
	"fmt"
	"slices"
	"time"
)

// Engine applies allocation decisions to race snapshots.
// It holds no race state: every call takes a Race value and returns a new one,
// so one Engine can serve any number of goroutines. On error the input race is
// returned unchanged.
type Engine struct {
	checker *EligibilityChecker
}

// NewEngine creates an engine; a nil checker uses the default predicates
func NewEngine(checker *EligibilityChecker) *Engine {
	if checker == nil {
		checker = NewEligibilityChecker()
	}
	return &Engine{checker: checker}
}

// DefaultEngine backs the Race aggregate methods
var DefaultEngine = NewEngine(nil)

// RegisterRequest asks for a seat in a slot
type RegisterRequest struct {
	Candidate Candidate
	SlotID    string
	Auth      AuthorizationContext

	// At is the request time. Retries of the same request must reuse it.
	// Zero means now.
	At time.Time
}

// WithdrawRequest gives up a seat or a waitlist place
type WithdrawRequest struct {
	CandidateID string
	SlotID      string
	At          time.Time
}

// PromoteRequest moves a specific waitlist entry into a slot regardless of rank
type PromoteRequest struct {
	SlotID      string
	CandidateID string
	Auth        AuthorizationContext
	At          time.Time
}

// Register accepts the candidate into the slot if a seat is free, queues them
// if it is full, or rejects them. Rejections are reported on the outcome with a
// nil error; only lookup failures and duplicates are errors.
func (e *Engine) Register(race Race, req RegisterRequest) (Race, RegistrationOutcome, error) {
	candidateID := req.Candidate.ID
	if candidateID == "" {
		return race, RegistrationOutcome{}, fmt.Errorf("%w: candidate id is required", ErrCandidateNotFound)
	}

	i := race.slotIndex(req.SlotID)
	if i < 0 {
		return race, RegistrationOutcome{}, fmt.Errorf("%w: %s", ErrSlotNotFound, req.SlotID)
	}
	slot := race.Slots[i]

	if slot.HasOccupant(candidateID) || race.waitlistIndex(slot.ID, candidateID) >= 0 {
		return race, RegistrationOutcome{}, fmt.Errorf("%w: %s in slot %s", ErrDuplicateRegistration, candidateID, slot.ID)
	}

	outcome := RegistrationOutcome{
		CandidateID: candidateID,
		SlotID:      slot.ID,
		At:          requestTime(req.At),
	}

	if race.Status == StatusCancelled {
		outcome.Status = StatusRejected
		outcome.RejectReason = RejectRaceCancelled
		return race, outcome, nil
	}

	outcome.Eligibility = e.checker.Check(req.Candidate, race, slot, req.Auth)
	if !outcome.Eligibility.Eligible() {
		outcome.Status = StatusRejected
		outcome.RejectReason = RejectIneligible
		return race, outcome, nil
	}

	tier := TierOf(req.Candidate)

	// a free seat goes to a queued entry before any newcomer
	if _, queued := NextForSlot(race.Waitlist, slot.ID); !slot.IsFull() && !queued {
		next := race.clone()
		updated, err := next.Slots[i].AddOccupant(Occupant{
			CandidateID: candidateID,
			DisplayName: req.Candidate.DisplayName,
			Tier:        tier,
			IsVIP:       req.Candidate.IsVIP,
			IsNew:       req.Candidate.IsNew,
			JoinedAt:    outcome.At,
		})
		if err != nil {
			return race, RegistrationOutcome{}, err
		}
		next.Slots[i] = updated
		outcome.Status = StatusAccepted
		return next.withDerivedStatus(), outcome, nil
	}

	if !race.AllowWaitlist {
		outcome.Status = StatusRejected
		outcome.RejectReason = RejectWaitlistClosed
		return race, outcome, nil
	}

	next := race.clone()
	next.Waitlist = append(next.Waitlist, WaitlistEntry{
		CandidateID: candidateID,
		DisplayName: req.Candidate.DisplayName,
		Tier:        tier,
		IsVIP:       req.Candidate.IsVIP,
		IsNew:       req.Candidate.IsNew,
		SlotID:      slot.ID,
		RequestedAt: outcome.At,
	})
	outcome.Status = StatusWaitlisted
	return next, outcome, nil
}

// Withdraw removes the candidate from the slot or from its waitlist.
// When a seat frees, the highest-ranked waitlist entry for that slot is
// promoted in the same step, so the slot is never over capacity and never
// left with a free seat while someone eligible is queued for it.
func (e *Engine) Withdraw(race Race, req WithdrawRequest) (Race, WithdrawOutcome, error) {
	i := race.slotIndex(req.SlotID)
	if i < 0 {
		return race, WithdrawOutcome{}, fmt.Errorf("%w: %s", ErrSlotNotFound, req.SlotID)
	}

	outcome := WithdrawOutcome{
		CandidateID: req.CandidateID,
		SlotID:      req.SlotID,
		At:          requestTime(req.At),
	}

	if race.Slots[i].HasOccupant(req.CandidateID) {
		next := race.clone()
		slot := next.Slots[i].RemoveOccupant(req.CandidateID)
		outcome.WasOccupant = true

		if j, ok := NextForSlot(next.Waitlist, slot.ID); ok && !slot.IsFull() {
			promoted := next.Waitlist[j].toOccupant(outcome.At)
			updated, err := slot.AddOccupant(promoted)
			if err != nil {
				return race, WithdrawOutcome{}, err
			}
			slot = updated
			next.Waitlist = slices.Delete(next.Waitlist, j, j+1)
			outcome.Promoted = &promoted
		}

		next.Slots[i] = slot
		return next.withDerivedStatus(), outcome, nil
	}

	if j := race.waitlistIndex(req.SlotID, req.CandidateID); j >= 0 {
		next := race.clone()
		next.Waitlist = slices.Delete(next.Waitlist, j, j+1)
		return next, outcome, nil
	}

	return race, WithdrawOutcome{}, fmt.Errorf("%w: %s in slot %s", ErrCandidateNotFound, req.CandidateID, req.SlotID)
}

// PromoteManually moves a specific waitlist entry into the slot, ignoring rank.
// It never overrides capacity.
func (e *Engine) PromoteManually(race Race, req PromoteRequest) (Race, PromotionOutcome, error) {
	if !req.Auth.Can(CapPromote) {
		return race, PromotionOutcome{}, fmt.Errorf("%w: %q cannot promote", ErrNotAuthorized, req.Auth.ActorID)
	}

	i := race.slotIndex(req.SlotID)
	if i < 0 {
		return race, PromotionOutcome{}, fmt.Errorf("%w: %s", ErrSlotNotFound, req.SlotID)
	}

	j := race.waitlistIndex(req.SlotID, req.CandidateID)
	if j < 0 {
		return race, PromotionOutcome{}, fmt.Errorf("%w: %s not waitlisted for slot %s", ErrCandidateNotFound, req.CandidateID, req.SlotID)
	}

	slot := race.Slots[i]
	if slot.IsFull() {
		return race, PromotionOutcome{}, fmt.Errorf("%w: slot %s is full", ErrCapacityExceeded, slot.ID)
	}

	rank := slices.IndexFunc(RankedForSlot(race.Waitlist, slot.ID), func(e WaitlistEntry) bool {
		return e.CandidateID == req.CandidateID
	})

	next := race.clone()
	occupant := next.Waitlist[j].toOccupant(requestTime(req.At))
	updated, err := next.Slots[i].AddOccupant(occupant)
	if err != nil {
		return race, PromotionOutcome{}, err
	}
	next.Slots[i] = updated
	next.Waitlist = slices.Delete(next.Waitlist, j, j+1)

	return next.withDerivedStatus(), PromotionOutcome{
		SlotID:     slot.ID,
		Occupant:   occupant,
		PromotedBy: req.Auth.ActorID,
		Rank:       rank,
	}, nil
}

// SetRoleTag sets or clears (empty tag) an occupant's role tag.
// Setting the tag it already has returns the race unchanged.
func (e *Engine) SetRoleTag(race Race, slotID, candidateID, roleTag string) (Race, RoleTagOutcome, error) {
	i := race.slotIndex(slotID)
	if i < 0 {
		return race, RoleTagOutcome{}, fmt.Errorf("%w: %s", ErrSlotNotFound, slotID)
	}

	k := race.Slots[i].occupantIndex(candidateID)
	if k < 0 {
		return race, RoleTagOutcome{}, fmt.Errorf("%w: %s is not an occupant of slot %s", ErrCandidateNotFound, candidateID, slotID)
	}

	outcome := RoleTagOutcome{
		SlotID:      slotID,
		CandidateID: candidateID,
		Previous:    race.Slots[i].Occupants[k].RoleTag,
		Current:     roleTag,
	}
	if outcome.Previous == roleTag {
		return race, outcome, nil
	}

	next := race.clone()
	next.Slots[i].Occupants[k].RoleTag = roleTag
	outcome.Changed = true
	return next, outcome, nil
}

func requestTime(at time.Time) time.Time {
	if at.IsZero() {
		return Now()
	}
	return Truncate(at)
}
