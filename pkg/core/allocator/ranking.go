package allocator

import (
	"cmp"
	"slices"
)

// Priority tiers, lower is higher priority
const (
	TierVIP uint = iota
	TierSeniorLeader
	TierExperiencedActive
	TierExperiencedOrLeader
	TierMember
	TierUnclassified
)

// TierOf computes the candidate's priority tier from static attributes.
// This is the only ranking rule; every caller that orders candidates uses it.
//
//   - VIP: tier 0
//   - experienced + active + leader: tier 1
//   - experienced + active: tier 2
//   - experienced or leader: tier 3
//   - active membership only: tier 4
//   - anything else: tier 5
func TierOf(c Candidate) uint {
	switch {
	case c.IsVIP:
		return TierVIP
	case c.IsExperienced && c.IsActive && c.IsLeader:
		return TierSeniorLeader
	case c.IsExperienced && c.IsActive:
		return TierExperiencedActive
	case c.IsExperienced || c.IsLeader:
		return TierExperiencedOrLeader
	case c.MembershipActive:
		return TierMember
	default:
		return TierUnclassified
	}
}

// Compare orders waitlist entries by (Tier, RequestedAt).
// Entries with equal keys compare as 0; callers keep insertion order for those.
func Compare(a, b WaitlistEntry) int {
	if c := cmp.Compare(a.Tier, b.Tier); c != 0 {
		return c
	}
	return a.RequestedAt.Compare(b.RequestedAt)
}

// SortWaitlist returns a ranked copy of the entries. The sort is stable so
// entries with identical keys stay in insertion order.
func SortWaitlist(entries []WaitlistEntry) []WaitlistEntry {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, Compare)
	return sorted
}

// RankedForSlot returns the slot's waitlist entries in promotion order
func RankedForSlot(waitlist []WaitlistEntry, slotID string) []WaitlistEntry {
	var forSlot []WaitlistEntry
	for _, entry := range waitlist {
		if entry.SlotID == slotID {
			forSlot = append(forSlot, entry)
		}
	}
	return SortWaitlist(forSlot)
}

// NextForSlot returns the index in waitlist of the entry to promote next for
// the slot. Only a strictly better entry displaces the current best, so ties
// resolve to the earliest inserted entry.
func NextForSlot(waitlist []WaitlistEntry, slotID string) (int, bool) {
	best := -1
	for i, entry := range waitlist {
		if entry.SlotID != slotID {
			continue
		}
		if best < 0 || Compare(entry, waitlist[best]) < 0 {
			best = i
		}
	}
	return best, best >= 0
}
