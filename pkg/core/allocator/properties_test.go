package allocator

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Random operation sequences must never push a slot over capacity or leave
// a free seat while someone is queued for it.
func TestProperty_CapacityHoldsUnderRandomOperations(t *testing.T) {
	for seed := uint64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(seed, seed*7919))
			race := newRace(newSlot("s1", 1), newSlot("s2", 3), newSlot("s3", 0))
			slotIDs := []string{"s1", "s2", "s3"}

			for step := 0; step < 200; step++ {
				slotID := slotIDs[rng.IntN(len(slotIDs))]
				candidateID := fmt.Sprintf("c%d", rng.IntN(12))
				when := at(step)

				var err error
				switch rng.IntN(4) {
				case 0, 1:
					candidate := eligible(candidateID)
					candidate.IsVIP = rng.IntN(5) == 0
					candidate.IsExperienced = rng.IntN(2) == 0
					race, _, err = race.Register(RegisterRequest{Candidate: candidate, SlotID: slotID, At: when})
					if err != nil {
						require.ErrorIs(t, err, ErrDuplicateRegistration)
					}
				case 2:
					race, _, err = race.Withdraw(WithdrawRequest{CandidateID: candidateID, SlotID: slotID, At: when})
					if err != nil {
						require.ErrorIs(t, err, ErrCandidateNotFound)
					}
				case 3:
					race, _, err = race.PromoteManually(PromoteRequest{SlotID: slotID, CandidateID: candidateID, Auth: AdminContext("admin"), At: when})
					if err != nil {
						require.True(t, errors.Is(err, ErrCandidateNotFound) || errors.Is(err, ErrCapacityExceeded),
							"unexpected error %v", err)
					}
				}

				require.NoError(t, race.CheckInvariants(), "step %d", step)
				for _, slot := range race.Slots {
					require.LessOrEqual(t, uint(len(slot.Occupants)), slot.Capacity)
					if !slot.IsFull() {
						assert.Empty(t, RankedForSlot(race.Waitlist, slot.ID),
							"slot %s has a free seat but a waitlist at step %d", slot.ID, step)
					}
				}
			}
		})
	}
}

// Withdrawing occupants one by one must promote waitlisted candidates in
// exactly the order SortWaitlist gives.
func TestProperty_PromotionOrderMatchesRanking(t *testing.T) {
	for seed := uint64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(seed, 42))
			race := newRace(newSlot("s1", 1))
			race, _ = mustRegister(race, eligible("holder"), "s1", at(0))

			for i := 0; i < 15; i++ {
				candidate := eligible(fmt.Sprintf("w%d", i))
				candidate.IsVIP = rng.IntN(6) == 0
				candidate.IsExperienced = rng.IntN(2) == 0
				candidate.IsActive = rng.IntN(2) == 0
				candidate.IsLeader = rng.IntN(3) == 0
				// Coarse timestamps force ties that must resolve by insertion order
				race, _ = mustRegister(race, candidate, "s1", at(rng.IntN(4)))
			}

			var expected []string
			for _, e := range SortWaitlist(race.Waitlist) {
				expected = append(expected, e.CandidateID)
			}

			var promoted []string
			holder := "holder"
			for len(race.Waitlist) > 0 {
				var outcome WithdrawOutcome
				var err error
				race, outcome, err = race.Withdraw(WithdrawRequest{CandidateID: holder, SlotID: "s1", At: at(100)})
				require.NoError(t, err)
				require.NotNil(t, outcome.Promoted)
				holder = outcome.Promoted.CandidateID
				promoted = append(promoted, holder)
			}

			assert.Equal(t, expected, promoted)
		})
	}
}
