package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
	"github.com/jakechorley/race-roster/pkg/core/templates"
	"github.com/jakechorley/race-roster/pkg/db"
)

// CreateRaceResult represents the result of creating a race
type CreateRaceResult struct {
	Race     allocator.Race
	Capacity uint
}

// CreateRace builds a race from the catalog template for its type and date
// and stores it. Date overrides in the catalog are applied by Build.
// Administrators only.
func CreateRace(ctx context.Context, store db.RaceStore, catalog *templates.Catalog, logger *zap.Logger, raceType, name string, date time.Time, auth allocator.AuthorizationContext) (*CreateRaceResult, error) {
	if !auth.Can(allocator.CapAdmin) {
		return nil, fmt.Errorf("%w: %q cannot create races", allocator.ErrNotAuthorized, auth.ActorID)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("race name is required")
	}
	if date.IsZero() {
		return nil, fmt.Errorf("race date is required")
	}

	logger.Debug("Creating race",
		zap.String("race_type", raceType),
		zap.String("name", name),
		zap.String("date", date.Format("2006-01-02")))

	race, err := catalog.Build(raceType, name, date, uuid.NewString)
	if err != nil {
		return nil, fmt.Errorf("failed to build race from template: %w", err)
	}

	if err := store.InsertRace(ctx, race); err != nil {
		return nil, fmt.Errorf("failed to insert race: %w", err)
	}
	race.Version = 1

	var capacity uint
	for _, slot := range race.Slots {
		capacity += slot.Capacity
	}

	logger.Info("Race created",
		zap.String("race_id", race.ID),
		zap.String("actor_id", auth.ActorID),
		zap.String("name", race.Name),
		zap.String("date", race.Date.Format("2006-01-02")),
		zap.Int("slot_count", len(race.Slots)),
		zap.Uint("capacity", capacity))

	return &CreateRaceResult{
		Race:     race,
		Capacity: capacity,
	}, nil
}
