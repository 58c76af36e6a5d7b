package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
	"github.com/jakechorley/race-roster/pkg/core/templates"
	"github.com/jakechorley/race-roster/pkg/db"
)

// mockInsertRaceStore implements db.RaceStore for testing race creation
type mockInsertRaceStore struct {
	inserted      []allocator.Race
	insertRaceErr error
}

func (m *mockInsertRaceStore) GetRace(ctx context.Context, raceID string) (allocator.Race, error) {
	return allocator.Race{}, db.ErrRaceNotFound
}

func (m *mockInsertRaceStore) ListRaces(ctx context.Context) ([]allocator.Race, error) {
	return m.inserted, nil
}

func (m *mockInsertRaceStore) InsertRace(ctx context.Context, race allocator.Race) error {
	if m.insertRaceErr != nil {
		return m.insertRaceErr
	}
	m.inserted = append(m.inserted, race)
	return nil
}

func (m *mockInsertRaceStore) SaveRace(ctx context.Context, race allocator.Race, expectedVersion int64) (int64, error) {
	return 0, errors.New("not implemented")
}

func testCatalog(t *testing.T) *templates.Catalog {
	t.Helper()
	catalog, err := templates.NewCatalog([]templates.RaceType{{
		Name:          "fun_run",
		AllowWaitlist: true,
		Slots: []templates.SlotTemplate{
			{Group: "Medical", Name: "Finish line", Capacity: 2},
			{Group: "Medical", Name: "Aid station", Capacity: 3},
		},
	}}, []templates.Override{{
		RRule:         "FREQ=WEEKLY;BYDAY=SA",
		Name:          "Finish line",
		CapacityDelta: 1,
	}})
	require.NoError(t, err)
	return catalog
}

func TestCreateRace_Success(t *testing.T) {
	store := &mockInsertRaceStore{}

	result, err := CreateRace(context.Background(), store, testCatalog(t), zap.NewNop(), "fun_run", "  Harbour 10K ", raceDay.Add(6*time.Hour), allocator.AdminContext("admin-1"))

	require.NoError(t, err)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "Harbour 10K", result.Race.Name)
	assert.Equal(t, raceDay, result.Race.Date)
	assert.Equal(t, allocator.StatusOpen, result.Race.Status)
	assert.Equal(t, int64(1), result.Race.Version)
	assert.Equal(t, uint(5), result.Capacity)
	assert.NotEmpty(t, result.Race.ID)
	assert.Equal(t, store.inserted[0].ID, result.Race.ID)
}

func TestCreateRace_AppliesDateOverrides(t *testing.T) {
	store := &mockInsertRaceStore{}
	saturday := raceDay.AddDate(0, 0, -1)

	result, err := CreateRace(context.Background(), store, testCatalog(t), zap.NewNop(), "fun_run", "Harbour 10K", saturday, allocator.AdminContext("admin-1"))

	require.NoError(t, err)
	assert.Equal(t, uint(6), result.Capacity)
	assert.Equal(t, uint(3), result.Race.Slots[0].Capacity)
}

func TestCreateRace_Errors(t *testing.T) {
	tests := []struct {
		name     string
		raceType string
		raceName string
		date     time.Time
		storeErr error
		wantErr  error
		contains string
	}{
		{name: "missing name", raceType: "fun_run", raceName: " ", date: raceDay, contains: "name is required"},
		{name: "missing date", raceType: "fun_run", raceName: "Harbour 10K", contains: "date is required"},
		{name: "unknown type", raceType: "ultra", raceName: "Harbour 10K", date: raceDay, wantErr: templates.ErrUnknownRaceType},
		{name: "store failure", raceType: "fun_run", raceName: "Harbour 10K", date: raceDay, storeErr: db.ErrRaceExists, wantErr: db.ErrRaceExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockInsertRaceStore{insertRaceErr: tt.storeErr}

			_, err := CreateRace(context.Background(), store, testCatalog(t), zap.NewNop(), tt.raceType, tt.raceName, tt.date, allocator.AdminContext("admin-1"))

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.contains != "" {
				assert.ErrorContains(t, err, tt.contains)
			}
		})
	}
}

func TestCreateRace_Authorization(t *testing.T) {
	for _, auth := range []allocator.AuthorizationContext{
		allocator.MemberContext("m-1"),
		allocator.MemberContext(""),
		{ActorID: "coordinator", Capabilities: []allocator.Capability{allocator.CapPromote}},
	} {
		store := &mockInsertRaceStore{}

		_, err := CreateRace(context.Background(), store, testCatalog(t), zap.NewNop(), "fun_run", "Harbour 10K", raceDay, auth)

		assert.ErrorIs(t, err, allocator.ErrNotAuthorized, "actor %q", auth.ActorID)
		assert.Empty(t, store.inserted)
	}
}
