package templates

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
)

var ErrUnknownRaceType = errors.New("unknown race type")

// SlotTemplate describes a slot created for every race of a type
type SlotTemplate struct {
	Group       string
	Name        string
	Capacity    uint
	GenderLimit allocator.Gender
}

// RaceType is a named template for building races
type RaceType struct {
	Name              string
	RequiresEquipment bool
	AllowWaitlist     bool
	Slots             []SlotTemplate
}

// Override adjusts the template for races whose date matches RRule.
// RaceType, Group and Name narrow which races and slots it touches; empty means any.
// Capacity replaces the slot capacity before CapacityDelta is added.
type Override struct {
	RRule         string
	RaceType      string
	Group         string
	Name          string
	Capacity      *uint
	CapacityDelta int
	AddSlots      []SlotTemplate
}

// Catalog holds the race types and overrides used to build new races
type Catalog struct {
	types     map[string]RaceType
	overrides []Override
}

// NewCatalog validates the race types and override rules
func NewCatalog(types []RaceType, overrides []Override) (*Catalog, error) {
	c := &Catalog{types: make(map[string]RaceType, len(types))}

	for _, rt := range types {
		if rt.Name == "" {
			return nil, fmt.Errorf("race type name is required")
		}
		if _, exists := c.types[rt.Name]; exists {
			return nil, fmt.Errorf("race type %s defined twice", rt.Name)
		}
		for _, st := range rt.Slots {
			if err := validateSlotTemplate(st); err != nil {
				return nil, fmt.Errorf("race type %s: %w", rt.Name, err)
			}
		}
		c.types[rt.Name] = rt
	}

	for i, o := range overrides {
		if _, err := rrule.StrToRRule(o.RRule); err != nil {
			return nil, fmt.Errorf("failed to parse rrule for override %d: %w", i, err)
		}
		if o.RaceType != "" {
			if _, ok := c.types[o.RaceType]; !ok {
				return nil, fmt.Errorf("override %d: %w: %s", i, ErrUnknownRaceType, o.RaceType)
			}
		}
		for _, st := range o.AddSlots {
			if err := validateSlotTemplate(st); err != nil {
				return nil, fmt.Errorf("override %d: %w", i, err)
			}
		}
	}
	c.overrides = slices.Clone(overrides)

	return c, nil
}

// Default returns a catalog of the built-in race types with no overrides
func Default() *Catalog {
	c, err := NewCatalog(DefaultRaceTypes(), nil)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultRaceTypes returns the race types used when none are configured
func DefaultRaceTypes() []RaceType {
	medical := func(extra ...SlotTemplate) []SlotTemplate {
		return append([]SlotTemplate{
			{Group: "Medical", Name: "Start area", Capacity: 2, GenderLimit: allocator.GenderAny},
			{Group: "Medical", Name: "Finish line", Capacity: 4, GenderLimit: allocator.GenderAny},
			{Group: "Medical tent", Name: "Male treatment", Capacity: 2, GenderLimit: allocator.GenderMale},
			{Group: "Medical tent", Name: "Female treatment", Capacity: 2, GenderLimit: allocator.GenderFemale},
		}, extra...)
	}

	return []RaceType{
		{
			Name:          "marathon",
			AllowWaitlist: true,
			Slots: medical(
				SlotTemplate{Group: "Course", Name: "Aid station 10K", Capacity: 2, GenderLimit: allocator.GenderAny},
				SlotTemplate{Group: "Course", Name: "Aid station 21K", Capacity: 2, GenderLimit: allocator.GenderAny},
				SlotTemplate{Group: "Course", Name: "Aid station 30K", Capacity: 3, GenderLimit: allocator.GenderAny},
				SlotTemplate{Group: "Course", Name: "Bike patrol", Capacity: 4, GenderLimit: allocator.GenderAny},
			),
		},
		{
			Name:          "half_marathon",
			AllowWaitlist: true,
			Slots: medical(
				SlotTemplate{Group: "Course", Name: "Aid station 10K", Capacity: 2, GenderLimit: allocator.GenderAny},
				SlotTemplate{Group: "Course", Name: "Bike patrol", Capacity: 2, GenderLimit: allocator.GenderAny},
			),
		},
		{
			Name:              "trail",
			RequiresEquipment: true,
			AllowWaitlist:     true,
			Slots: []SlotTemplate{
				{Group: "Medical", Name: "Base camp", Capacity: 3, GenderLimit: allocator.GenderAny},
				{Group: "Course", Name: "Checkpoint sweep", Capacity: 4, GenderLimit: allocator.GenderAny},
			},
		},
		{
			Name:              "triathlon",
			RequiresEquipment: true,
			AllowWaitlist:     true,
			Slots: medical(
				SlotTemplate{Group: "Water", Name: "Swim safety", Capacity: 4, GenderLimit: allocator.GenderAny},
				SlotTemplate{Group: "Course", Name: "Bike patrol", Capacity: 3, GenderLimit: allocator.GenderAny},
			),
		},
	}
}

// Names returns the race type names in sorted order
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RaceType returns the named race type
func (c *Catalog) RaceType(name string) (RaceType, bool) {
	rt, ok := c.types[name]
	return rt, ok
}

// Build creates an OPEN race of the given type on date with overrides applied.
// newID mints the race and slot IDs; nil uses random UUIDs.
func (c *Catalog) Build(raceType, name string, date time.Time, newID func() string) (allocator.Race, error) {
	rt, ok := c.types[raceType]
	if !ok {
		return allocator.Race{}, fmt.Errorf("%w: %s", ErrUnknownRaceType, raceType)
	}
	if newID == nil {
		newID = uuid.NewString
	}

	templates := slices.Clone(rt.Slots)
	capacities := make([]int, len(templates))
	for i, st := range templates {
		capacities[i] = int(st.Capacity)
	}

	for _, o := range c.matchingOverrides(raceType, date) {
		for i, st := range templates {
			if !o.appliesToSlot(st) {
				continue
			}
			if o.Capacity != nil {
				capacities[i] = int(*o.Capacity)
			}
			capacities[i] += o.CapacityDelta
		}
		for _, st := range o.AddSlots {
			templates = append(templates, st)
			capacities = append(capacities, int(st.Capacity))
		}
	}

	y, m, d := date.Date()
	race := allocator.Race{
		ID:                newID(),
		Name:              name,
		Type:              rt.Name,
		Date:              time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		RequiresEquipment: rt.RequiresEquipment,
		AllowWaitlist:     rt.AllowWaitlist,
		Status:            allocator.StatusOpen,
	}

	for i, st := range templates {
		gender := st.GenderLimit
		if gender == "" {
			gender = allocator.GenderAny
		}
		race.Slots = append(race.Slots, allocator.Slot{
			ID:          newID(),
			Group:       st.Group,
			Name:        st.Name,
			Capacity:    uint(max(capacities[i], 0)),
			GenderLimit: gender,
		})
	}

	if err := race.CheckInvariants(); err != nil {
		return allocator.Race{}, fmt.Errorf("failed to build race from template %s: %w", raceType, err)
	}
	return race, nil
}

func (c *Catalog) matchingOverrides(raceType string, date time.Time) []Override {
	var matched []Override
	for _, o := range c.overrides {
		if o.RaceType != "" && o.RaceType != raceType {
			continue
		}
		if MatchesDate(o.RRule, date) {
			matched = append(matched, o)
		}
	}
	return matched
}

func (o Override) appliesToSlot(st SlotTemplate) bool {
	return (o.Group == "" || strings.EqualFold(o.Group, st.Group)) &&
		(o.Name == "" || strings.EqualFold(o.Name, st.Name))
}

// MatchesDate reports whether the rule has an occurrence on the calendar day of date.
// A rule without DTSTART is anchored at the start of that day, so it only
// discriminates through BY* parts: FREQ=YEARLY without BYMONTH, or any bare
// INTERVAL, matches every date. Give the rule its own DTSTART (either
// "DTSTART:20260101T000000Z\nRRULE:..." or a DTSTART= part) to count
// INTERVAL and COUNT from a fixed day.
func MatchesDate(rule string, date time.Time) bool {
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return false
	}

	y, m, d := date.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if opt.Dtstart.IsZero() {
		opt.Dtstart = dayStart
	}

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return false
	}
	return len(r.Between(dayStart, dayStart.Add(24*time.Hour-time.Nanosecond), true)) > 0
}

func validateSlotTemplate(st SlotTemplate) error {
	if st.Group == "" || st.Name == "" {
		return fmt.Errorf("slot template needs a group and a name")
	}
	if st.GenderLimit != "" && !st.GenderLimit.IsValid() {
		return fmt.Errorf("slot template %s/%s has unknown gender limit %q", st.Group, st.Name, st.GenderLimit)
	}
	return nil
}
