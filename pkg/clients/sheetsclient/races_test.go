package sheetsclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
)

func publishedRace() allocator.Race {
	requested := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	return allocator.Race{
		ID:     "race-1",
		Name:   "City Marathon",
		Date:   time.Date(2026, 11, 8, 0, 0, 0, 0, time.UTC),
		Status: allocator.StatusFull,
		Slots: []allocator.Slot{
			{
				ID: "s1", Group: "Medical", Name: "Finish line", Capacity: 2, GenderLimit: allocator.GenderAny,
				Occupants: []allocator.Occupant{
					{CandidateID: "m-1", DisplayName: "Mei", RoleTag: "帶隊教官"},
					{CandidateID: "m-2", DisplayName: "Jun", IsVIP: true, IsNew: true},
				},
			},
			{
				ID: "s2", Group: "Medical", Name: "Female treatment", Capacity: 1, GenderLimit: allocator.GenderFemale,
				Occupants: []allocator.Occupant{
					{CandidateID: "legacy-1", DisplayName: "Ann", IsLegacyImport: true},
				},
			},
		},
		Waitlist: []allocator.WaitlistEntry{
			{CandidateID: "m-3", DisplayName: "Wei", Tier: 3, SlotID: "s1", RequestedAt: requested},
			{CandidateID: "m-4", DisplayName: "Lin", Tier: 1, SlotID: "s1", RequestedAt: requested.Add(time.Minute)},
		},
	}
}

func TestRaceTabTitle(t *testing.T) {
	assert.Equal(t, "2026-11-08 City Marathon", RaceTabTitle(publishedRace()))
}

func TestBuildRaceRows(t *testing.T) {
	rows := BuildRaceRows(publishedRace())

	require.Len(t, rows, 9)
	assert.Equal(t, []interface{}{"City Marathon", "Sun Nov 08 2026", "FULL"}, rows[0])
	assert.Equal(t, []interface{}{"Group", "Slot", "Capacity", "Gender", "Member 1", "Member 2"}, rows[2])
	assert.Equal(t, []interface{}{"Medical", "Finish line", "2/2", "ANY", "Mei (帶隊教官)", "Jun (VIP, new)"}, rows[3])
	assert.Equal(t, []interface{}{"Medical", "Female treatment", "1/1", "F", "Ann (unverified)", ""}, rows[4])

	assert.Equal(t, []interface{}{"Waitlist", "Slot", "Rank", "Requested"}, rows[6])
	assert.Equal(t, "Lin", rows[7][0])
	assert.Equal(t, 1, rows[7][2])
	assert.Equal(t, "Wei", rows[8][0])
	assert.Equal(t, "2026-10-01 09:00:00", rows[8][3])
}

func TestBuildRaceRows_NoWaitlist(t *testing.T) {
	race := publishedRace()
	race.Waitlist = nil

	rows := BuildRaceRows(race)

	assert.Len(t, rows, 5)
}
