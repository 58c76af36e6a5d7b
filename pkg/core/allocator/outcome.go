package allocator

import (
	"strings"
	"time"
)

// RegistrationStatus is the terminal or waiting state a registration request lands in
type RegistrationStatus string

const (
	StatusAccepted   RegistrationStatus = "ACCEPTED"
	StatusWaitlisted RegistrationStatus = "WAITLISTED"
	StatusRejected   RegistrationStatus = "REJECTED"
)

// Reasons attached to rejected registrations
const (
	RejectIneligible     = "ineligible"
	RejectWaitlistClosed = "waitlistDisabled"
	RejectRaceCancelled  = "raceCancelled"
)

// EventKind names what happened to a race, for audit, metrics and notification
type EventKind string

const (
	EventAccepted      EventKind = "ACCEPTED"
	EventWaitlisted    EventKind = "WAITLISTED"
	EventRejected      EventKind = "REJECTED"
	EventWithdrawn     EventKind = "WITHDRAWN"
	EventPromoted      EventKind = "PROMOTED"
	EventRoleTagged    EventKind = "ROLE_TAGGED"
	EventSlotAdded     EventKind = "SLOT_ADDED"
	EventSlotRemoved   EventKind = "SLOT_REMOVED"
	EventStatusChanged EventKind = "STATUS_CHANGED"
)

// Event is a flat record of one state change, derived from an outcome
type Event struct {
	Kind        EventKind
	SlotID      string
	CandidateID string
	ActorID     string
	Bypassed    bool
	Detail      string
	At          time.Time
}

// RegistrationOutcome describes the result of a register call
type RegistrationOutcome struct {
	Status      RegistrationStatus
	CandidateID string
	SlotID      string
	At          time.Time

	// Eligibility holds every predicate outcome, including bypassed failures
	Eligibility EligibilityResult

	// RejectReason is set when Status is REJECTED
	RejectReason string
}

// EligibilityBypassed reports whether failed predicates were overridden
func (o RegistrationOutcome) EligibilityBypassed() bool {
	return o.Eligibility.Bypassed
}

// Err returns an *IneligibleError for ineligibility rejections, nil otherwise
func (o RegistrationOutcome) Err() error {
	if o.Status == StatusRejected && o.RejectReason == RejectIneligible {
		return &IneligibleError{CandidateID: o.CandidateID, Failed: o.Eligibility.Failed()}
	}
	return nil
}

// Events converts the outcome for audit and notification
func (o RegistrationOutcome) Events(actorID string) []Event {
	event := Event{
		SlotID:      o.SlotID,
		CandidateID: o.CandidateID,
		ActorID:     actorID,
		Bypassed:    o.Eligibility.Bypassed,
		At:          o.At,
	}
	switch o.Status {
	case StatusAccepted:
		event.Kind = EventAccepted
	case StatusWaitlisted:
		event.Kind = EventWaitlisted
	default:
		event.Kind = EventRejected
		event.Detail = o.RejectReason
		if failed := o.Eligibility.Failed(); len(failed) > 0 {
			event.Detail += ": " + strings.Join(failed, ",")
		}
	}
	if o.Eligibility.Bypassed {
		event.Detail = "bypassed: " + strings.Join(o.Eligibility.Failed(), ",")
	}
	return []Event{event}
}

// WithdrawOutcome describes the result of a withdraw call
type WithdrawOutcome struct {
	CandidateID string
	SlotID      string
	At          time.Time

	// WasOccupant is false when the candidate was only on the waitlist
	WasOccupant bool

	// Promoted is the waitlisted candidate moved into the freed seat, if any
	Promoted *Occupant
}

// Events converts the outcome; a promotion yields a separate PROMOTED event
func (o WithdrawOutcome) Events(actorID string) []Event {
	detail := "occupant"
	if !o.WasOccupant {
		detail = "waitlist"
	}
	events := []Event{{
		Kind:        EventWithdrawn,
		SlotID:      o.SlotID,
		CandidateID: o.CandidateID,
		ActorID:     actorID,
		Detail:      detail,
		At:          o.At,
	}}
	if o.Promoted != nil {
		events = append(events, Event{
			Kind:        EventPromoted,
			SlotID:      o.SlotID,
			CandidateID: o.Promoted.CandidateID,
			ActorID:     actorID,
			Detail:      "automatic",
			At:          o.At,
		})
	}
	return events
}

// SlotOccupant pairs an occupant with the slot they were seated in
type SlotOccupant struct {
	SlotID   string
	Occupant Occupant
}

// FillOutcome lists the waitlist entries FillFreeSeats seated
type FillOutcome struct {
	Promoted []SlotOccupant
}

// Events converts the outcome, one PROMOTED event per seated entry
func (o FillOutcome) Events(actorID string) []Event {
	var events []Event
	for _, p := range o.Promoted {
		events = append(events, Event{
			Kind:        EventPromoted,
			SlotID:      p.SlotID,
			CandidateID: p.Occupant.CandidateID,
			ActorID:     actorID,
			Detail:      "backfill",
			At:          p.Occupant.JoinedAt,
		})
	}
	return events
}

// PromotionOutcome describes a manual promotion
type PromotionOutcome struct {
	SlotID     string
	Occupant   Occupant
	PromotedBy string

	// Rank is the entry's position in the slot's ranked waitlist before promotion (0 = next in line)
	Rank int
}

// Events converts the outcome
func (o PromotionOutcome) Events(actorID string) []Event {
	return []Event{{
		Kind:        EventPromoted,
		SlotID:      o.SlotID,
		CandidateID: o.Occupant.CandidateID,
		ActorID:     actorID,
		Detail:      "manual",
		At:          o.Occupant.JoinedAt,
	}}
}

// RoleTagOutcome describes a role tag change
type RoleTagOutcome struct {
	SlotID      string
	CandidateID string
	Previous    string
	Current     string

	// Changed is false when the tag was already set to the requested value
	Changed bool
}

// Events converts the outcome, stamped at the given time; unchanged tags produce no events
func (o RoleTagOutcome) Events(actorID string, at time.Time) []Event {
	if !o.Changed {
		return nil
	}
	return []Event{{
		Kind:        EventRoleTagged,
		SlotID:      o.SlotID,
		CandidateID: o.CandidateID,
		ActorID:     actorID,
		Detail:      o.Current,
		At:          at,
	}}
}

// SlotOutcome describes adding or removing a slot
type SlotOutcome struct {
	Slot    Slot
	Removed bool

	// Withdrawn and Cancelled list who was cascaded out of a removed slot
	Withdrawn []Occupant
	Cancelled []WaitlistEntry
}

// Events converts the outcome, one WITHDRAWN event per cascaded candidate
func (o SlotOutcome) Events(actorID string, at time.Time) []Event {
	kind := EventSlotAdded
	if o.Removed {
		kind = EventSlotRemoved
	}
	events := []Event{{Kind: kind, SlotID: o.Slot.ID, ActorID: actorID, Detail: o.Slot.Group + "/" + o.Slot.Name, At: at}}
	for _, occupant := range o.Withdrawn {
		events = append(events, Event{Kind: EventWithdrawn, SlotID: o.Slot.ID, CandidateID: occupant.CandidateID, ActorID: actorID, Detail: "cascade", At: at})
	}
	for _, entry := range o.Cancelled {
		events = append(events, Event{Kind: EventWithdrawn, SlotID: o.Slot.ID, CandidateID: entry.CandidateID, ActorID: actorID, Detail: "cascade-waitlist", At: at})
	}
	return events
}

// StatusOutcome describes a race status change
type StatusOutcome struct {
	Previous RaceStatus
	Current  RaceStatus
}

// Events converts the outcome; an unchanged status produces no events
func (o StatusOutcome) Events(actorID string, at time.Time) []Event {
	if o.Previous == o.Current {
		return nil
	}
	return []Event{{Kind: EventStatusChanged, ActorID: actorID, Detail: string(o.Previous) + "->" + string(o.Current), At: at}}
}
