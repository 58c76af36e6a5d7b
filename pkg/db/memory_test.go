package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
)

func TestMemoryStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	race := sampleRace()

	require.NoError(t, store.InsertRace(ctx, race))

	got, err := store.GetRace(ctx, race.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, race.Slots, got.Slots)

	err = store.InsertRace(ctx, race)
	assert.ErrorIs(t, err, ErrRaceExists)

	_, err = store.GetRace(ctx, "missing")
	assert.ErrorIs(t, err, ErrRaceNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.InsertRace(ctx, sampleRace()))

	got, err := store.GetRace(ctx, "race-1")
	require.NoError(t, err)
	got.Slots[0].Occupants[0].RoleTag = "changed"

	again, err := store.GetRace(ctx, "race-1")
	require.NoError(t, err)
	assert.Equal(t, "帶隊教官", again.Slots[0].Occupants[0].RoleTag)
}

func TestMemoryStore_SaveRaceVersionGuard(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.InsertRace(ctx, sampleRace()))

	race, err := store.GetRace(ctx, "race-1")
	require.NoError(t, err)
	race.Name = "Renamed"

	version, err := store.SaveRace(ctx, race, race.Version)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	// A writer holding the old version loses
	race.Name = "Stale"
	_, err = store.SaveRace(ctx, race, 1)
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, err := store.GetRace(ctx, "race-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, int64(2), got.Version)
}

func TestMemoryStore_RefusesInvalidRaces(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.InsertRace(ctx, sampleRace()))

	race, err := store.GetRace(ctx, "race-1")
	require.NoError(t, err)
	race.Slots[1].Occupants = []allocator.Occupant{{CandidateID: "a"}, {CandidateID: "b"}}

	_, err = store.SaveRace(ctx, race, race.Version)
	assert.ErrorIs(t, err, allocator.ErrInvariantViolation)

	bad := sampleRace()
	bad.ID = "race-2"
	bad.Slots[1].Occupants = race.Slots[1].Occupants
	assert.ErrorIs(t, store.InsertRace(ctx, bad), allocator.ErrInvariantViolation)
}

func TestMemoryStore_SaveUnknownRace(t *testing.T) {
	_, err := NewMemoryStore().SaveRace(context.Background(), sampleRace(), 1)

	assert.ErrorIs(t, err, ErrRaceNotFound)
}

func TestMemoryStore_ListRacesSorted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	later := sampleRace()
	later.ID = "b"
	later.Date = later.Date.AddDate(0, 1, 0)
	earlier := sampleRace()
	earlier.ID = "c"
	sameDay := sampleRace()
	sameDay.ID = "a"

	for _, r := range []allocator.Race{later, earlier, sameDay} {
		require.NoError(t, store.InsertRace(ctx, r))
	}

	races, err := store.ListRaces(ctx)
	require.NoError(t, err)
	require.Len(t, races, 3)
	assert.Equal(t, []string{"a", "c", "b"}, []string{races[0].ID, races[1].ID, races[2].ID})
}

func TestMemoryStore_AuditLog(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	entries := AuditEntriesFromEvents("race-1", 3, "register", []allocator.Event{
		{Kind: allocator.EventAccepted, SlotID: "s1", CandidateID: "m-1", ActorID: "admin", Bypassed: true, At: at},
	})
	require.NoError(t, store.InsertAuditEntries(ctx, entries))
	require.NoError(t, store.InsertAuditEntries(ctx, AuditEntriesFromEvents("race-2", 1, "withdraw", []allocator.Event{
		{Kind: allocator.EventWithdrawn, SlotID: "s1", CandidateID: "m-2", At: at},
	})))

	got, err := store.GetAuditEntries(ctx, "race-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, int64(3), got[0].RaceVersion)
	assert.Equal(t, "register", got[0].Operation)
	assert.Equal(t, allocator.EventAccepted, got[0].Kind)
	assert.True(t, got[0].Bypassed)
}
