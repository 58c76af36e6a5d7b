package db

import (
	"context"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
)

// RaceStore defines the interface for race persistence.
// SaveRace succeeds only when the stored version equals expectedVersion and
// returns the new version; otherwise it returns ErrVersionConflict.
// Implementations must call Race.CheckInvariants before writing.
type RaceStore interface {
	GetRace(ctx context.Context, raceID string) (allocator.Race, error)
	ListRaces(ctx context.Context) ([]allocator.Race, error)
	InsertRace(ctx context.Context, race allocator.Race) error
	SaveRace(ctx context.Context, race allocator.Race, expectedVersion int64) (int64, error)
}

// AuditStore defines the interface for the append-only audit log
type AuditStore interface {
	InsertAuditEntries(ctx context.Context, entries []AuditEntry) error
	GetAuditEntries(ctx context.Context, raceID string) ([]AuditEntry, error)
}

// Database defines the interface for all database operations.
// The in-memory, SQLite and PostgreSQL stores all implement it.
type Database interface {
	RaceStore
	AuditStore
}
