package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
	"github.com/jakechorley/race-roster/pkg/db"
)

// InsertAuditEntries appends audit entries in one transaction
func (d *DB) InsertAuditEntries(ctx context.Context, entries []db.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		_, err := tx.Exec(ctx, `
			INSERT INTO audit_log (id, race_id, race_version, operation, kind, slot_id, candidate_id, actor_id, bypassed, detail, at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, e.ID, e.RaceID, e.RaceVersion, e.Operation, string(e.Kind), nullable(e.SlotID),
			nullable(e.CandidateID), nullable(e.ActorID), e.Bypassed, nullable(e.Detail), e.At.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert audit entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit audit entries: %w", err)
	}
	return nil
}

// GetAuditEntries retrieves the audit log of a race in time order
func (d *DB) GetAuditEntries(ctx context.Context, raceID string) ([]db.AuditEntry, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, race_id, race_version, operation, kind, slot_id, candidate_id, actor_id, bypassed, detail, at
		FROM audit_log
		WHERE race_id = $1
		ORDER BY at, race_version
	`, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []db.AuditEntry
	for rows.Next() {
		var e db.AuditEntry
		var kind string
		var slotID, candidateID, actorID, detail *string
		if err := rows.Scan(&e.ID, &e.RaceID, &e.RaceVersion, &e.Operation, &kind, &slotID,
			&candidateID, &actorID, &e.Bypassed, &detail, &e.At); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Kind = allocator.EventKind(kind)
		e.SlotID = deref(slotID)
		e.CandidateID = deref(candidateID)
		e.ActorID = deref(actorID)
		e.Detail = deref(detail)
		e.At = e.At.UTC()
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log: %w", err)
	}

	return entries, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
