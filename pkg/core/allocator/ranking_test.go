package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierOf(t *testing.T) {
	tests := []struct {
		name      string
		candidate Candidate
		want      uint
	}{
		{"vip beats everything", Candidate{IsVIP: true, IsExperienced: true, IsActive: true, IsLeader: true}, TierVIP},
		{"vip alone", Candidate{IsVIP: true}, TierVIP},
		{"experienced active leader", Candidate{IsExperienced: true, IsActive: true, IsLeader: true}, TierSeniorLeader},
		{"experienced active", Candidate{IsExperienced: true, IsActive: true}, TierExperiencedActive},
		{"experienced only", Candidate{IsExperienced: true}, TierExperiencedOrLeader},
		{"leader only", Candidate{IsLeader: true, MembershipActive: true}, TierExperiencedOrLeader},
		{"active leader without experience", Candidate{IsLeader: true, IsActive: true}, TierExperiencedOrLeader},
		{"member only", Candidate{MembershipActive: true}, TierMember},
		{"unclassified", Candidate{}, TierUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TierOf(tt.candidate))
		})
	}
}

func TestCompare_TierThenTime(t *testing.T) {
	early := WaitlistEntry{CandidateID: "a", Tier: 2, RequestedAt: at(0)}
	late := WaitlistEntry{CandidateID: "b", Tier: 2, RequestedAt: at(5)}
	higher := WaitlistEntry{CandidateID: "c", Tier: 1, RequestedAt: at(10)}

	assert.Equal(t, -1, Compare(early, late))
	assert.Equal(t, 1, Compare(late, early))
	assert.Equal(t, -1, Compare(higher, early), "lower tier wins regardless of time")
	assert.Equal(t, 0, Compare(early, WaitlistEntry{CandidateID: "z", Tier: 2, RequestedAt: at(0)}))
}

func TestSortWaitlist_StableForEqualKeys(t *testing.T) {
	entries := []WaitlistEntry{
		{CandidateID: "first", Tier: 3, RequestedAt: at(0)},
		{CandidateID: "vip", Tier: 0, RequestedAt: at(50)},
		{CandidateID: "second", Tier: 3, RequestedAt: at(0)},
		{CandidateID: "earliest", Tier: 3, RequestedAt: at(-10)},
	}

	sorted := SortWaitlist(entries)

	ids := make([]string, len(sorted))
	for i, e := range sorted {
		ids[i] = e.CandidateID
	}
	assert.Equal(t, []string{"vip", "earliest", "first", "second"}, ids)
	assert.Equal(t, "first", entries[0].CandidateID, "input should not be reordered")
}

func TestNextForSlot(t *testing.T) {
	waitlist := []WaitlistEntry{
		{CandidateID: "other-slot", SlotID: "s2", Tier: 0, RequestedAt: at(0)},
		{CandidateID: "b", SlotID: "s1", Tier: 1, RequestedAt: at(1)},
		{CandidateID: "c", SlotID: "s1", Tier: 1, RequestedAt: at(1)},
	}

	i, ok := NextForSlot(waitlist, "s1")
	require.True(t, ok)
	assert.Equal(t, "b", waitlist[i].CandidateID, "ties resolve to insertion order")

	_, ok = NextForSlot(waitlist, "s3")
	assert.False(t, ok)
}

func TestRankedForSlot_FiltersBySlot(t *testing.T) {
	waitlist := []WaitlistEntry{
		{CandidateID: "a", SlotID: "s1", Tier: 4, RequestedAt: at(0)},
		{CandidateID: "b", SlotID: "s2", Tier: 0, RequestedAt: at(0)},
		{CandidateID: "c", SlotID: "s1", Tier: 2, RequestedAt: at(9)},
	}

	ranked := RankedForSlot(waitlist, "s1")

	require.Len(t, ranked, 2)
	assert.Equal(t, "c", ranked[0].CandidateID)
	assert.Equal(t, "a", ranked[1].CandidateID)
}
