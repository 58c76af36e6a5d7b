package allocator

import (
	"fmt"
	"time"
)

var (
	raceDay  = time.Date(2026, 11, 8, 0, 0, 0, 0, time.UTC)
	baseTime = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
)

// eligible returns a candidate who passes every default predicate
func eligible(id string) Candidate {
	return Candidate{
		ID:               id,
		DisplayName:      "Member " + id,
		Gender:           GenderFemale,
		IsActive:         true,
		MembershipActive: true,
		LicenseExpiry:    raceDay.AddDate(1, 0, 0),
		HasEquipment:     true,
	}
}

func newSlot(id string, capacity uint) Slot {
	return Slot{ID: id, Group: "Medical", Name: "Station " + id, Capacity: capacity, GenderLimit: GenderAny}
}

func newRace(slots ...Slot) Race {
	return Race{
		ID:            "race-1",
		Name:          "City Marathon",
		Type:          "marathon",
		Date:          raceDay,
		AllowWaitlist: true,
		Status:        StatusOpen,
		Slots:         slots,
	}
}

// at returns a distinct millisecond timestamp for ordering tests
func at(offsetMillis int) time.Time {
	return baseTime.Add(time.Duration(offsetMillis) * time.Millisecond)
}

func mustRegister(race Race, c Candidate, slotID string, when time.Time) (Race, RegistrationOutcome) {
	next, outcome, err := race.Register(RegisterRequest{Candidate: c, SlotID: slotID, At: when})
	if err != nil {
		panic(fmt.Sprintf("register %s: %v", c.ID, err))
	}
	return next, outcome
}
