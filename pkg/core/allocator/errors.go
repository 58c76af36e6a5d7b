package allocator

import (
	"errors"
	"strings"
)

var (
	ErrCapacityExceeded      = errors.New("slot capacity exceeded")
	ErrSlotNotFound          = errors.New("slot not found")
	ErrCandidateNotFound     = errors.New("candidate not found")
	ErrDuplicateRegistration = errors.New("candidate already registered for slot")
	ErrDuplicateSlot         = errors.New("slot already exists")
	ErrInvalidSlot           = errors.New("invalid slot")
	ErrSlotNotEmpty          = errors.New("slot still has occupants or waitlist entries")
	ErrNotAuthorized         = errors.New("not authorized")
	ErrInvalidStatus         = errors.New("invalid race status")

	// ErrInvariantViolation is returned by CheckInvariants; a race failing it must never be persisted
	ErrInvariantViolation = errors.New("race invariant violated")
)

// IneligibleError reports the eligibility predicates a candidate failed
type IneligibleError struct {
	CandidateID string
	Failed      []string
}

func (e *IneligibleError) Error() string {
	return "candidate " + e.CandidateID + " is ineligible: " + strings.Join(e.Failed, ", ")
}
