package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
	"github.com/jakechorley/race-roster/pkg/db"
)

const selectRace = `
	SELECT id, name, race_type, race_date, requires_equipment, allow_waitlist, status, document, version
	FROM races
`

type rowScanner interface {
	Scan(dest ...any) error
}

// GetRace retrieves a race with its slots and waitlist
func (d *DB) GetRace(ctx context.Context, raceID string) (allocator.Race, error) {
	race, err := d.scanRace(d.sqlDB.QueryRowContext(ctx, selectRace+` WHERE id = ?`, raceID))
	if errors.Is(err, sql.ErrNoRows) {
		return allocator.Race{}, fmt.Errorf("%w: %s", db.ErrRaceNotFound, raceID)
	}
	if err != nil {
		return allocator.Race{}, fmt.Errorf("failed to get race %s: %w", raceID, err)
	}
	return race, nil
}

// ListRaces retrieves every race ordered by date
func (d *DB) ListRaces(ctx context.Context) ([]allocator.Race, error) {
	rows, err := d.sqlDB.QueryContext(ctx, selectRace+` ORDER BY race_date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query races: %w", err)
	}
	defer rows.Close()

	var races []allocator.Race
	for rows.Next() {
		race, err := d.scanRace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan race: %w", err)
		}
		races = append(races, race)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating races: %w", err)
	}

	return races, nil
}

// InsertRace inserts a new race at version 1
func (d *DB) InsertRace(ctx context.Context, race allocator.Race) error {
	if err := race.CheckInvariants(); err != nil {
		return fmt.Errorf("failed to insert race %s: %w", race.ID, err)
	}
	document, err := db.EncodeRaceDocument(race)
	if err != nil {
		return err
	}

	_, err = d.sqlDB.ExecContext(ctx, `
		INSERT INTO races (id, name, race_type, race_date, requires_equipment, allow_waitlist, status, document, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
	`, race.ID, race.Name, race.Type, toMillis(race.Date), race.RequiresEquipment, race.AllowWaitlist,
		string(race.Status), string(document), toMillis(time.Now()))

	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", db.ErrRaceExists, race.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert race %s: %w", race.ID, err)
	}
	return nil
}

// SaveRace writes the race if its stored version still equals expectedVersion
func (d *DB) SaveRace(ctx context.Context, race allocator.Race, expectedVersion int64) (int64, error) {
	if err := race.CheckInvariants(); err != nil {
		return 0, fmt.Errorf("failed to save race %s: %w", race.ID, err)
	}
	document, err := db.EncodeRaceDocument(race)
	if err != nil {
		return 0, err
	}

	result, err := d.sqlDB.ExecContext(ctx, `
		UPDATE races
		SET name = ?, race_type = ?, race_date = ?, requires_equipment = ?, allow_waitlist = ?,
			status = ?, document = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, race.Name, race.Type, toMillis(race.Date), race.RequiresEquipment, race.AllowWaitlist,
		string(race.Status), string(document), toMillis(time.Now()), race.ID, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to save race %s: %w", race.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to save race %s: %w", race.ID, err)
	}
	if affected == 0 {
		var count int
		if err := d.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM races WHERE id = ?`, race.ID).Scan(&count); err != nil {
			return 0, fmt.Errorf("failed to check race %s: %w", race.ID, err)
		}
		if count == 0 {
			return 0, fmt.Errorf("%w: %s", db.ErrRaceNotFound, race.ID)
		}
		return 0, fmt.Errorf("%w: race %s moved past version %d", db.ErrVersionConflict, race.ID, expectedVersion)
	}

	return expectedVersion + 1, nil
}

func (d *DB) scanRace(row rowScanner) (allocator.Race, error) {
	var race allocator.Race
	var date int64
	var status, document string
	if err := row.Scan(&race.ID, &race.Name, &race.Type, &date, &race.RequiresEquipment,
		&race.AllowWaitlist, &status, &document, &race.Version); err != nil {
		return allocator.Race{}, err
	}
	race.Date = fromMillis(date)
	race.Status = allocator.RaceStatus(status)

	report, err := db.DecodeRaceDocument(&race, []byte(document))
	if err != nil {
		return allocator.Race{}, err
	}
	if len(report.LegacyOccupants) > 0 {
		d.logger.Warn("Race has legacy occupants needing reconciliation",
			zap.String("race_id", race.ID),
			zap.Int("count", len(report.LegacyOccupants)))
	}

	return race, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
