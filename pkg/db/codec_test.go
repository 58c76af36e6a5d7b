package db

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
)

var joined = time.Date(2026, 10, 1, 9, 30, 15, 123000000, time.UTC)

func sampleRace() allocator.Race {
	return allocator.Race{
		ID:     "race-1",
		Name:   "City Marathon",
		Type:   "marathon",
		Date:   time.Date(2026, 11, 8, 0, 0, 0, 0, time.UTC),
		Status: allocator.StatusOpen,
		Slots: []allocator.Slot{
			{
				ID: "s1", Group: "Medical", Name: "Finish line", Capacity: 2, GenderLimit: allocator.GenderAny,
				Occupants: []allocator.Occupant{
					{CandidateID: "m-1", DisplayName: "Lin", Tier: 1, IsVIP: false, IsNew: true, RoleTag: "帶隊教官", JoinedAt: joined},
				},
			},
			{
				ID: "s2", Group: "Medical tent", Name: "Female treatment", Capacity: 1, GenderLimit: allocator.GenderFemale,
				Occupants: []allocator.Occupant{
					{CandidateID: "m-3", DisplayName: "Ho", Tier: 2, JoinedAt: joined},
				},
			},
		},
		Waitlist: []allocator.WaitlistEntry{
			{CandidateID: "m-2", DisplayName: "Wu", Tier: 0, IsVIP: true, SlotID: "s2", RequestedAt: joined.Add(time.Second)},
		},
	}
}

func TestRaceDocument_RoundTrip(t *testing.T) {
	race := sampleRace()

	data, err := EncodeRaceDocument(race)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"member"`)

	decoded := allocator.Race{ID: race.ID}
	report, err := DecodeRaceDocument(&decoded, data)

	require.NoError(t, err)
	assert.Empty(t, report.LegacyOccupants)
	assert.Equal(t, race.Slots, decoded.Slots)
	assert.Equal(t, race.Waitlist, decoded.Waitlist)
}

func TestRaceDocument_TimestampsAreMilliseconds(t *testing.T) {
	race := sampleRace()
	race.Slots[0].Occupants[0].JoinedAt = joined.Add(456 * time.Microsecond)

	data, err := EncodeRaceDocument(race)
	require.NoError(t, err)

	decoded := allocator.Race{ID: race.ID}
	_, err = DecodeRaceDocument(&decoded, data)
	require.NoError(t, err)
	assert.Equal(t, joined, decoded.Slots[0].Occupants[0].JoinedAt)
}

func TestDecodeRaceDocument_LegacyOccupants(t *testing.T) {
	doc := `{
		"slots": [{
			"id": "s1", "group": "Medical", "name": "Finish line", "capacity": 5,
			"occupants": [
				"Chen #3",
				"{\"id\":\"m-9\",\"name\":\"Huang\"}",
				"{\"name\":\"Tsai\"}",
				{"kind":"member","candidateId":"m-1","displayName":"Lin","tier":2,"joinedAt":1790847015123},
				"Chen #3"
			]
		}],
		"waitlist": []
	}`

	race := allocator.Race{ID: "race-1"}
	report, err := DecodeRaceDocument(&race, []byte(doc))
	require.NoError(t, err)

	occupants := race.Slots[0].Occupants
	require.Len(t, occupants, 5)
	assert.Equal(t, allocator.GenderAny, race.Slots[0].GenderLimit)

	assert.True(t, occupants[0].IsLegacyImport)
	assert.Equal(t, "Chen", occupants[0].DisplayName)
	assert.Equal(t, "Chen #3", occupants[0].LegacySource)
	assert.True(t, strings.HasPrefix(occupants[0].CandidateID, "legacy-"))
	assert.Equal(t, allocator.TierUnclassified, occupants[0].Tier)

	assert.False(t, occupants[1].IsLegacyImport, "stringified fragment with an id is a member")
	assert.Equal(t, "m-9", occupants[1].CandidateID)
	assert.Equal(t, "Huang", occupants[1].DisplayName)

	assert.True(t, occupants[2].IsLegacyImport)
	assert.Equal(t, "Tsai", occupants[2].DisplayName)

	assert.Equal(t, "m-1", occupants[3].CandidateID)
	assert.Equal(t, uint(2), occupants[3].Tier)

	assert.NotEqual(t, occupants[0].CandidateID, occupants[4].CandidateID, "repeated legacy names stay distinct")
	assert.Len(t, report.LegacyOccupants, 3)
	assert.NoError(t, race.CheckInvariants())
}

func TestDecodeRaceDocument_LegacyIDsAreStable(t *testing.T) {
	doc := []byte(`{"slots":[{"id":"s1","group":"g","name":"n","capacity":1,"occupants":["Chen #3"]}],"waitlist":[]}`)

	first := allocator.Race{ID: "race-1"}
	_, err := DecodeRaceDocument(&first, doc)
	require.NoError(t, err)

	// Re-encoding stores the legacy variant with its minted ID
	data, err := EncodeRaceDocument(first)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"legacy"`)
	assert.Contains(t, string(data), `"raw":"Chen #3"`)

	second := allocator.Race{ID: "race-1"}
	report, err := DecodeRaceDocument(&second, data)
	require.NoError(t, err)

	assert.Equal(t, first.Slots[0].Occupants[0], second.Slots[0].Occupants[0])
	assert.Equal(t, LegacyCandidateID("race-1", "s1", 0, "Chen #3"), second.Slots[0].Occupants[0].CandidateID)
	assert.Len(t, report.LegacyOccupants, 1)
}

func TestDecodeRaceDocument_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"numeric occupant", `{"slots":[{"id":"s1","occupants":[42]}]}`},
		{"unknown kind", `{"slots":[{"id":"s1","occupants":[{"kind":"robot","candidateId":"x"}]}]}`},
		{"anonymous occupant", `{"slots":[{"id":"s1","occupants":[{"kind":"member"}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			race := allocator.Race{ID: "race-1"}
			_, err := DecodeRaceDocument(&race, []byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestEncodeRaceDocument_EmptyRace(t *testing.T) {
	data, err := EncodeRaceDocument(allocator.Race{ID: "empty"})
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.JSONEq(t, `[]`, string(doc["slots"]))
	assert.JSONEq(t, `[]`, string(doc["waitlist"]))
}
