package db

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
)

// MemoryStore keeps races and audit entries in process memory.
// Races are copied on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	races map[string]allocator.Race
	audit []AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{races: make(map[string]allocator.Race)}
}

func (s *MemoryStore) GetRace(_ context.Context, raceID string) (allocator.Race, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	race, ok := s.races[raceID]
	if !ok {
		return allocator.Race{}, fmt.Errorf("%w: %s", ErrRaceNotFound, raceID)
	}
	return race.Read(), nil
}

// ListRaces returns every race ordered by date then ID
func (s *MemoryStore) ListRaces(_ context.Context) ([]allocator.Race, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	races := make([]allocator.Race, 0, len(s.races))
	for _, race := range s.races {
		races = append(races, race.Read())
	}
	SortRaces(races)
	return races, nil
}

// InsertRace stores a new race at version 1
func (s *MemoryStore) InsertRace(_ context.Context, race allocator.Race) error {
	if err := race.CheckInvariants(); err != nil {
		return fmt.Errorf("failed to insert race %s: %w", race.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.races[race.ID]; exists {
		return fmt.Errorf("%w: %s", ErrRaceExists, race.ID)
	}
	stored := race.Read()
	stored.Version = 1
	s.races[race.ID] = stored
	return nil
}

func (s *MemoryStore) SaveRace(_ context.Context, race allocator.Race, expectedVersion int64) (int64, error) {
	if err := race.CheckInvariants(); err != nil {
		return 0, fmt.Errorf("failed to save race %s: %w", race.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.races[race.ID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrRaceNotFound, race.ID)
	}
	if current.Version != expectedVersion {
		return 0, fmt.Errorf("%w: race %s is at version %d, expected %d", ErrVersionConflict, race.ID, current.Version, expectedVersion)
	}

	stored := race.Read()
	stored.Version = expectedVersion + 1
	s.races[race.ID] = stored
	return stored.Version, nil
}

func (s *MemoryStore) InsertAuditEntries(_ context.Context, entries []AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, entries...)
	return nil
}

func (s *MemoryStore) GetAuditEntries(_ context.Context, raceID string) ([]AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []AuditEntry
	for _, e := range s.audit {
		if e.RaceID == raceID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// SortRaces orders races by date, then ID
func SortRaces(races []allocator.Race) {
	slices.SortFunc(races, func(a, b allocator.Race) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
