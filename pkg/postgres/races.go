package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
	"github.com/jakechorley/race-roster/pkg/db"
)

const uniqueViolation = "23505"

const selectRace = `
	SELECT id, name, race_type, race_date, requires_equipment, allow_waitlist, status, document, version
	FROM races
`

// GetRace retrieves a race with its slots and waitlist
func (d *DB) GetRace(ctx context.Context, raceID string) (allocator.Race, error) {
	row := d.pool.QueryRow(ctx, selectRace+` WHERE id = $1`, raceID)
	race, err := d.scanRace(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return allocator.Race{}, fmt.Errorf("%w: %s", db.ErrRaceNotFound, raceID)
	}
	if err != nil {
		return allocator.Race{}, fmt.Errorf("failed to get race %s: %w", raceID, err)
	}
	return race, nil
}

// ListRaces retrieves every race ordered by date
func (d *DB) ListRaces(ctx context.Context) ([]allocator.Race, error) {
	rows, err := d.pool.Query(ctx, selectRace+` ORDER BY race_date, id`)
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

	_, err = d.pool.Exec(ctx, `
		INSERT INTO races (id, name, race_type, race_date, requires_equipment, allow_waitlist, status, document, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)
	`, race.ID, race.Name, race.Type, race.Date.UTC(), race.RequiresEquipment, race.AllowWaitlist, string(race.Status), document)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
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

	var version int64
	err = d.pool.QueryRow(ctx, `
		UPDATE races
		SET name = $3, race_type = $4, race_date = $5, requires_equipment = $6,
			allow_waitlist = $7, status = $8, document = $9,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version
	`, race.ID, expectedVersion, race.Name, race.Type, race.Date.UTC(), race.RequiresEquipment,
		race.AllowWaitlist, string(race.Status), document).Scan(&version)

	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := d.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM races WHERE id = $1)`, race.ID).Scan(&exists); err != nil {
			return 0, fmt.Errorf("failed to check race %s: %w", race.ID, err)
		}
		if !exists {
			return 0, fmt.Errorf("%w: %s", db.ErrRaceNotFound, race.ID)
		}
		return 0, fmt.Errorf("%w: race %s moved past version %d", db.ErrVersionConflict, race.ID, expectedVersion)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to save race %s: %w", race.ID, err)
	}

	return version, nil
}

func (d *DB) scanRace(row pgx.Row) (allocator.Race, error) {
	var race allocator.Race
	var date time.Time
	var status string
	var document []byte
	if err := row.Scan(&race.ID, &race.Name, &race.Type, &date, &race.RequiresEquipment,
		&race.AllowWaitlist, &status, &document, &race.Version); err != nil {
		return allocator.Race{}, err
	}
	race.Date = date.UTC()
	race.Status = allocator.RaceStatus(status)

	report, err := db.DecodeRaceDocument(&race, document)
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
