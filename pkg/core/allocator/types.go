package allocator

import (
	"slices"
	"time"
)

// Gender is the recorded gender of a candidate, or the gender limit of a slot
type Gender string

const (
	GenderAny    Gender = "ANY"
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// IsValid reports whether g is one of the known gender values
func (g Gender) IsValid() bool {
	return g == GenderAny || g == GenderMale || g == GenderFemale
}

// RaceStatus is the lifecycle status of a race
type RaceStatus string

const (
	StatusOpen        RaceStatus = "OPEN"
	StatusNegotiating RaceStatus = "NEGOTIATING"
	StatusSubmitted   RaceStatus = "SUBMITTED"
	StatusFull        RaceStatus = "FULL"
	StatusCancelled   RaceStatus = "CANCELLED"
	StatusShortage    RaceStatus = "SHORTAGE"
)

// IsValid reports whether s is a known race status
func (s RaceStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusNegotiating, StatusSubmitted, StatusFull, StatusCancelled, StatusShortage:
		return true
	}
	return false
}

// Candidate holds the already-resolved attributes of a person asking for a seat.
// The engine never fetches these itself.
type Candidate struct {
	ID          string
	DisplayName string
	Gender      Gender

	// Ranking attributes
	IsVIP         bool
	IsExperienced bool
	IsActive      bool
	IsLeader      bool

	// Eligibility attributes
	MembershipActive bool
	LicenseExpiry    time.Time
	HasEquipment     bool

	// IsNew marks first-season members
	IsNew bool
}

// Occupant is a candidate currently holding a seat in a slot
type Occupant struct {
	CandidateID string
	DisplayName string
	Tier        uint
	IsVIP       bool
	IsNew       bool

	// RoleTag is administrative metadata (e.g. team leader); empty means none.
	// It never affects occupancy counts.
	RoleTag string

	JoinedAt time.Time

	// IsLegacyImport marks occupants decoded from legacy free-text entries.
	// Their CandidateID is synthetic and LegacySource keeps the original text.
	IsLegacyImport bool
	LegacySource   string
}

// WaitlistEntry is a queued request for a full slot
type WaitlistEntry struct {
	CandidateID string
	DisplayName string
	Tier        uint
	IsVIP       bool
	IsNew       bool
	SlotID      string
	RequestedAt time.Time
}

// Slot is one assignable duty within a race
type Slot struct {
	ID          string
	Group       string
	Name        string
	Capacity    uint
	GenderLimit Gender
	Occupants   []Occupant
}

// Race is the aggregate root owning its slots and waitlist.
// Values are treated as immutable: every mutation returns a new Race.
type Race struct {
	ID                string
	Name              string
	Type              string
	Date              time.Time
	RequiresEquipment bool

	// AllowWaitlist controls whether registrations for full slots are queued or rejected
	AllowWaitlist bool

	Status   RaceStatus
	Slots    []Slot
	Waitlist []WaitlistEntry

	// Version is the persisted version used for optimistic concurrency; owned by the store
	Version int64
}

// Now returns the current time truncated to millisecond precision
func Now() time.Time {
	return Truncate(time.Now())
}

// Truncate drops sub-millisecond precision and normalises to UTC
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func (s Slot) clone() Slot {
	s.Occupants = slices.Clone(s.Occupants)
	return s
}

func (r Race) clone() Race {
	if r.Slots != nil {
		slots := make([]Slot, len(r.Slots))
		for i, slot := range r.Slots {
			slots[i] = slot.clone()
		}
		r.Slots = slots
	}
	r.Waitlist = slices.Clone(r.Waitlist)
	return r
}

// slotIndex returns the index of the slot with the given ID, or -1
func (r Race) slotIndex(slotID string) int {
	return slices.IndexFunc(r.Slots, func(s Slot) bool { return s.ID == slotID })
}

// waitlistIndex returns the index of the candidate's waitlist entry for a slot, or -1
func (r Race) waitlistIndex(slotID, candidateID string) int {
	return slices.IndexFunc(r.Waitlist, func(e WaitlistEntry) bool {
		return e.SlotID == slotID && e.CandidateID == candidateID
	})
}

func (e WaitlistEntry) toOccupant(joinedAt time.Time) Occupant {
	return Occupant{
		CandidateID: e.CandidateID,
		DisplayName: e.DisplayName,
		Tier:        e.Tier,
		IsVIP:       e.IsVIP,
		IsNew:       e.IsNew,
		JoinedAt:    joinedAt,
	}
}
