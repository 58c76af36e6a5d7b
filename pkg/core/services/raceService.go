package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
	"github.com/jakechorley/race-roster/pkg/db"
	"github.com/jakechorley/race-roster/pkg/metrics"
	"github.com/jakechorley/race-roster/pkg/racelock"
)

const DefaultMaxAttempts = 5

var ErrAuditUnavailable = errors.New("audit log is not configured")

// OutcomePublisher hands committed events to the notification dispatcher
type OutcomePublisher interface {
	Publish(ctx context.Context, race allocator.Race, version int64, events []allocator.Event) error
}

// RaceService runs engine operations against stored races.
// Each operation reads the race, applies the engine and saves with the read
// version, retrying on version conflicts. The request timestamp is taken once
// per operation so every retry records the same time.
type RaceService struct {
	store       db.RaceStore
	audit       db.AuditStore
	engine      *allocator.Engine
	locker      racelock.Locker
	publisher   OutcomePublisher
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
	maxAttempts int
}

type Option func(*RaceService)

func WithAudit(audit db.AuditStore) Option {
	return func(s *RaceService) { s.audit = audit }
}

func WithEngine(engine *allocator.Engine) Option {
	return func(s *RaceService) { s.engine = engine }
}

func WithLocker(locker racelock.Locker) Option {
	return func(s *RaceService) { s.locker = locker }
}

func WithPublisher(publisher OutcomePublisher) Option {
	return func(s *RaceService) { s.publisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *RaceService) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *RaceService) { s.now = now }
}

func WithMaxAttempts(n int) Option {
	return func(s *RaceService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewRaceService(store db.RaceStore, logger *zap.Logger, opts ...Option) *RaceService {
	s := &RaceService{
		store:       store,
		engine:      allocator.DefaultEngine,
		locker:      racelock.Noop{},
		logger:      logger,
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// change is what one attempt of an operation produced
type change struct {
	race    allocator.Race
	events  []allocator.Event
	changed bool
}

type mutation func(race allocator.Race, at time.Time) (change, error)

// mutate runs fn in the read-modify-write loop and returns the committed race
func (s *RaceService) mutate(ctx context.Context, operation, raceID, actorID string, fn mutation) (allocator.Race, error) {
	start := time.Now()
	defer s.metrics.ObserveOperation(operation, start)

	at := allocator.Truncate(s.now())

	release, err := s.locker.Lock(ctx, raceID)
	if err != nil {
		return allocator.Race{}, fmt.Errorf("failed to lock race %s: %w", raceID, err)
	}
	defer release()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		stored, err := s.store.GetRace(ctx, raceID)
		if err != nil {
			return allocator.Race{}, fmt.Errorf("failed to get race: %w", err)
		}

		race, filled := stored.FillFreeSeats(at)
		if len(filled.Promoted) > 0 {
			s.logger.Warn("Seated waitlisted candidates into free seats of a loaded race",
				zap.String("race_id", raceID),
				zap.Int("count", len(filled.Promoted)))
		}

		c, err := fn(race, at)
		if err != nil {
			return stored, err
		}
		c.events = append(filled.Events(actorID), c.events...)

		version := stored.Version
		if c.changed || len(filled.Promoted) > 0 {
			if c.race.Status != stored.Status && !slices.ContainsFunc(c.events, func(e allocator.Event) bool {
				return e.Kind == allocator.EventStatusChanged
			}) {
				derived := allocator.StatusOutcome{Previous: stored.Status, Current: c.race.Status}
				c.events = append(c.events, derived.Events(actorID, at)...)
			}

			version, err = s.store.SaveRace(ctx, c.race, stored.Version)
			if errors.Is(err, db.ErrVersionConflict) {
				s.metrics.IncrementVersionConflict()
				s.logger.Debug("Version conflict, retrying",
					zap.String("operation", operation),
					zap.String("race_id", raceID),
					zap.Int("attempt", attempt))
				continue
			}
			if err != nil {
				return stored, fmt.Errorf("failed to save race: %w", err)
			}
			c.race.Version = version
		}

		s.record(ctx, operation, c.race, version, c.events)
		return c.race, nil
	}

	s.metrics.IncrementRetriesExhausted()
	s.logger.Warn("Gave up after repeated version conflicts",
		zap.String("operation", operation),
		zap.String("race_id", raceID),
		zap.Int("attempts", s.maxAttempts))
	return allocator.Race{}, fmt.Errorf("failed to %s after %d attempts: %w", operation, s.maxAttempts, db.ErrVersionConflict)
}

// record audits, counts and publishes committed events. Failures are logged;
// the race change itself is already committed.
func (s *RaceService) record(ctx context.Context, operation string, race allocator.Race, version int64, events []allocator.Event) {
	if len(events) == 0 {
		return
	}

	for _, e := range events {
		s.logger.Info("Race event",
			zap.String("operation", operation),
			zap.String("race_id", race.ID),
			zap.String("kind", string(e.Kind)),
			zap.String("slot_id", e.SlotID),
			zap.String("candidate_id", e.CandidateID),
			zap.String("actor_id", e.ActorID),
			zap.Bool("bypassed", e.Bypassed),
			zap.String("detail", e.Detail))
	}

	s.metrics.RecordEvents(events)

	if s.audit != nil {
		entries := db.AuditEntriesFromEvents(race.ID, version, operation, events)
		if err := s.audit.InsertAuditEntries(ctx, entries); err != nil {
			s.logger.Error("Failed to write audit entries",
				zap.String("race_id", race.ID),
				zap.Error(err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, race, version, events); err != nil {
			s.metrics.IncrementPublishFailure()
			s.logger.Error("Failed to publish outcome events",
				zap.String("race_id", race.ID),
				zap.Error(err))
		}
	}
}

// RegisterResult represents the result of a registration
type RegisterResult struct {
	Race    allocator.Race
	Outcome allocator.RegistrationOutcome
}

// Register asks for a seat for the candidate. Rejections are returned on the
// outcome with a nil error. Members may register themselves; registering
// someone else needs the admin capability.
func (s *RaceService) Register(ctx context.Context, raceID string, candidate allocator.Candidate, slotID string, auth allocator.AuthorizationContext) (*RegisterResult, error) {
	if auth.ActorID == "" || (auth.ActorID != candidate.ID && !auth.Can(allocator.CapAdmin)) {
		return nil, fmt.Errorf("%w: %q cannot register %q", allocator.ErrNotAuthorized, auth.ActorID, candidate.ID)
	}

	var outcome allocator.RegistrationOutcome
	race, err := s.mutate(ctx, "register", raceID, auth.ActorID, func(race allocator.Race, at time.Time) (change, error) {
		next, o, err := s.engine.Register(race, allocator.RegisterRequest{
			Candidate: candidate,
			SlotID:    slotID,
			Auth:      auth,
			At:        at,
		})
		if err != nil {
			return change{}, err
		}
		outcome = o
		return change{race: next, events: o.Events(auth.ActorID), changed: o.Status != allocator.StatusRejected}, nil
	})
	if err != nil {
		return nil, err
	}
	return &RegisterResult{Race: race, Outcome: outcome}, nil
}

// RegisterMember resolves the member from the directory and registers them
func (s *RaceService) RegisterMember(ctx context.Context, directory MemberDirectory, raceID, memberID, slotID string, auth allocator.AuthorizationContext) (*RegisterResult, error) {
	member, err := FindMember(ctx, directory, memberID)
	if err != nil {
		return nil, err
	}
	return s.Register(ctx, raceID, CandidateFromMember(member), slotID, auth)
}

// WithdrawResult represents the result of a withdrawal
type WithdrawResult struct {
	Race    allocator.Race
	Outcome allocator.WithdrawOutcome
}

// Withdraw removes the candidate from a slot or its waitlist. Members may
// withdraw themselves; withdrawing someone else needs the admin capability.
func (s *RaceService) Withdraw(ctx context.Context, raceID, candidateID, slotID string, auth allocator.AuthorizationContext) (*WithdrawResult, error) {
	if auth.ActorID != candidateID && !auth.Can(allocator.CapAdmin) {
		return nil, fmt.Errorf("%w: %q cannot withdraw %q", allocator.ErrNotAuthorized, auth.ActorID, candidateID)
	}

	var outcome allocator.WithdrawOutcome
	race, err := s.mutate(ctx, "withdraw", raceID, auth.ActorID, func(race allocator.Race, at time.Time) (change, error) {
		next, o, err := s.engine.Withdraw(race, allocator.WithdrawRequest{
			CandidateID: candidateID,
			SlotID:      slotID,
			At:          at,
		})
		if err != nil {
			return change{}, err
		}
		outcome = o
		return change{race: next, events: o.Events(auth.ActorID), changed: true}, nil
	})
	if err != nil {
		return nil, err
	}
	return &WithdrawResult{Race: race, Outcome: outcome}, nil
}

// PromoteResult represents the result of a manual promotion
type PromoteResult struct {
	Race    allocator.Race
	Outcome allocator.PromotionOutcome
}

// PromoteManually moves a waitlisted candidate into the slot out of rank order
func (s *RaceService) PromoteManually(ctx context.Context, raceID, slotID, candidateID string, auth allocator.AuthorizationContext) (*PromoteResult, error) {
	var outcome allocator.PromotionOutcome
	race, err := s.mutate(ctx, "promote", raceID, auth.ActorID, func(race allocator.Race, at time.Time) (change, error) {
		next, o, err := s.engine.PromoteManually(race, allocator.PromoteRequest{
			SlotID:      slotID,
			CandidateID: candidateID,
			Auth:        auth,
			At:          at,
		})
		if err != nil {
			return change{}, err
		}
		outcome = o
		return change{race: next, events: o.Events(auth.ActorID), changed: true}, nil
	})
	if err != nil {
		return nil, err
	}
	return &PromoteResult{Race: race, Outcome: outcome}, nil
}

// RoleTagResult represents the result of setting a role tag
type RoleTagResult struct {
	Race    allocator.Race
	Outcome allocator.RoleTagOutcome
}

// SetRoleTag sets or clears an occupant's role tag; administrators only
func (s *RaceService) SetRoleTag(ctx context.Context, raceID, slotID, candidateID, roleTag string, auth allocator.AuthorizationContext) (*RoleTagResult, error) {
	if !auth.Can(allocator.CapAdmin) {
		return nil, fmt.Errorf("%w: %q cannot set role tags", allocator.ErrNotAuthorized, auth.ActorID)
	}

	var outcome allocator.RoleTagOutcome
	race, err := s.mutate(ctx, "setRoleTag", raceID, auth.ActorID, func(race allocator.Race, at time.Time) (change, error) {
		next, o, err := s.engine.SetRoleTag(race, slotID, candidateID, roleTag)
		if err != nil {
			return change{}, err
		}
		outcome = o
		return change{race: next, events: o.Events(auth.ActorID, at), changed: o.Changed}, nil
	})
	if err != nil {
		return nil, err
	}
	return &RoleTagResult{Race: race, Outcome: outcome}, nil
}

// SlotResult represents the result of adding or removing a slot
type SlotResult struct {
	Race    allocator.Race
	Outcome allocator.SlotOutcome
}

// AddSlot adds an empty slot to the race; administrators only.
// An empty slot ID is filled with a new UUID.
func (s *RaceService) AddSlot(ctx context.Context, raceID string, slot allocator.Slot, newID func() string, auth allocator.AuthorizationContext) (*SlotResult, error) {
	if !auth.Can(allocator.CapAdmin) {
		return nil, fmt.Errorf("%w: %q cannot edit slots", allocator.ErrNotAuthorized, auth.ActorID)
	}
	if slot.ID == "" && newID != nil {
		slot.ID = newID()
	}

	var outcome allocator.SlotOutcome
	race, err := s.mutate(ctx, "addSlot", raceID, auth.ActorID, func(race allocator.Race, at time.Time) (change, error) {
		next, o, err := race.AddSlot(slot)
		if err != nil {
			return change{}, err
		}
		outcome = o
		return change{race: next, events: o.Events(auth.ActorID, at), changed: true}, nil
	})
	if err != nil {
		return nil, err
	}
	return &SlotResult{Race: race, Outcome: outcome}, nil
}

// RemoveSlot removes a slot; with cascade its occupants and waitlist entries
// are withdrawn too. Administrators only.
func (s *RaceService) RemoveSlot(ctx context.Context, raceID, slotID string, cascade bool, auth allocator.AuthorizationContext) (*SlotResult, error) {
	if !auth.Can(allocator.CapAdmin) {
		return nil, fmt.Errorf("%w: %q cannot edit slots", allocator.ErrNotAuthorized, auth.ActorID)
	}

	var outcome allocator.SlotOutcome
	race, err := s.mutate(ctx, "removeSlot", raceID, auth.ActorID, func(race allocator.Race, at time.Time) (change, error) {
		next, o, err := race.RemoveSlot(slotID, cascade)
		if err != nil {
			return change{}, err
		}
		outcome = o
		return change{race: next, events: o.Events(auth.ActorID, at), changed: true}, nil
	})
	if err != nil {
		return nil, err
	}
	return &SlotResult{Race: race, Outcome: outcome}, nil
}

// StatusResult represents the result of a status change
type StatusResult struct {
	Race    allocator.Race
	Outcome allocator.StatusOutcome
}

// SetStatus changes the race status
func (s *RaceService) SetStatus(ctx context.Context, raceID string, status allocator.RaceStatus, auth allocator.AuthorizationContext) (*StatusResult, error) {
	var outcome allocator.StatusOutcome
	race, err := s.mutate(ctx, "setStatus", raceID, auth.ActorID, func(race allocator.Race, at time.Time) (change, error) {
		next, o, err := race.SetStatus(status, auth)
		if err != nil {
			return change{}, err
		}
		outcome = o
		return change{race: next, events: o.Events(auth.ActorID, at), changed: o.Previous != o.Current}, nil
	})
	if err != nil {
		return nil, err
	}
	return &StatusResult{Race: race, Outcome: outcome}, nil
}

// GetRace returns a snapshot of the race
func (s *RaceService) GetRace(ctx context.Context, raceID string) (allocator.Race, error) {
	race, err := s.store.GetRace(ctx, raceID)
	if err != nil {
		return allocator.Race{}, fmt.Errorf("failed to get race: %w", err)
	}
	return race, nil
}

// ListRaces returns every stored race
func (s *RaceService) ListRaces(ctx context.Context) ([]allocator.Race, error) {
	races, err := s.store.ListRaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list races: %w", err)
	}
	return races, nil
}

// AuditLog returns the audit entries of a race
func (s *RaceService) AuditLog(ctx context.Context, raceID string) ([]db.AuditEntry, error) {
	if s.audit == nil {
		return nil, ErrAuditUnavailable
	}
	entries, err := s.audit.GetAuditEntries(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}
	return entries, nil
}
