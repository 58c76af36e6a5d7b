package sqlite

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

	tx, err := d.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO audit_log (id, race_id, race_version, operation, kind, slot_id, candidate_id, actor_id, bypassed, detail, at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, e.RaceID, e.RaceVersion, e.Operation, string(e.Kind), e.SlotID, e.CandidateID,
			e.ActorID, e.Bypassed, e.Detail, toMillis(e.At))
		if err != nil {
			return fmt.Errorf("failed to insert audit entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit entries: %w", err)
	}
	return nil
}

// GetAuditEntries retrieves the audit log of a race in time order
func (d *DB) GetAuditEntries(ctx context.Context, raceID string) ([]db.AuditEntry, error) {
	rows, err := d.sqlDB.QueryContext(ctx, `
		SELECT id, race_id, race_version, operation, kind, slot_id, candidate_id, actor_id, bypassed, detail, at
		FROM audit_log
		WHERE race_id = ?
		ORDER BY at, race_version, rowid
	`, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []db.AuditEntry
	for rows.Next() {
		var e db.AuditEntry
		var kind string
		var at int64
		if err := rows.Scan(&e.ID, &e.RaceID, &e.RaceVersion, &e.Operation, &kind, &e.SlotID,
			&e.CandidateID, &e.ActorID, &e.Bypassed, &e.Detail, &at); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Kind = allocator.EventKind(kind)
		e.At = fromMillis(at)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log: %w", err)
	}

	return entries, nil
}
