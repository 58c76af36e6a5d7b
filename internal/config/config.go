package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
	"github.com/jakechorley/race-roster/pkg/core/templates"
)

const configFileName = "race_roster_config"

// SlotTemplate describes one slot of a race type
type SlotTemplate struct {
	Group       string `yaml:"group" validate:"required"`
	Name        string `yaml:"name" validate:"required"`
	Capacity    uint   `yaml:"capacity"`
	GenderLimit string `yaml:"genderLimit,omitempty" validate:"omitempty,oneof=ANY M F"`
}

// RaceType defines the slots created for every race of the type
type RaceType struct {
	Name              string         `yaml:"name" validate:"required"`
	RequiresEquipment bool           `yaml:"requiresEquipment,omitempty"`
	AllowWaitlist     *bool          `yaml:"allowWaitlist,omitempty"` // Defaults to true
	Slots             []SlotTemplate `yaml:"slots" validate:"required,min=1,dive"`
}

// TemplateOverride adjusts slot capacities for races whose date matches the rrule.
// Without a DTSTART the rule is anchored at the race day itself, so only its
// BY* parts select dates; INTERVAL and COUNT need an explicit DTSTART.
type TemplateOverride struct {
	RRule         string         `yaml:"rrule" validate:"required"`
	RaceType      string         `yaml:"raceType,omitempty"`
	Group         string         `yaml:"group,omitempty"`
	Name          string         `yaml:"name,omitempty"`
	Capacity      *uint          `yaml:"capacity,omitempty"`
	CapacityDelta int            `yaml:"capacityDelta,omitempty"`
	AddSlots      []SlotTemplate `yaml:"addSlots,omitempty" validate:"dive"`
}

// StorageConfig selects where races are persisted
type StorageConfig struct {
	Driver      string `yaml:"driver" validate:"required,oneof=memory postgres sqlite"`
	PostgresURL string `yaml:"postgresURL,omitempty" validate:"required_if=Driver postgres"`
	SQLitePath  string `yaml:"sqlitePath,omitempty" validate:"required_if=Driver sqlite"`
}

// RosterConfig selects where members are read from
type RosterConfig struct {
	Source     string `yaml:"source" validate:"required,oneof=sheets file"`
	SheetID    string `yaml:"sheetID,omitempty" validate:"required_if=Source sheets"`
	MembersTab string `yaml:"membersTab,omitempty" validate:"required_if=Source sheets"`
	FilePath   string `yaml:"filePath,omitempty" validate:"required_if=Source file"`

	// CredentialsFile is a service account key; empty uses the OAuth client flow
	CredentialsFile string `yaml:"credentialsFile,omitempty"`

	// PublishSheetID receives published race rosters
	PublishSheetID string `yaml:"publishSheetID,omitempty"`
}

// Config represents the application configuration
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Roster  RosterConfig  `yaml:"roster"`

	RabbitMQURL string        `yaml:"rabbitmqURL,omitempty" validate:"omitempty,url"`
	RedisURL    string        `yaml:"redisURL,omitempty" validate:"omitempty,url"`
	LockTTL     time.Duration `yaml:"lockTTL,omitempty" validate:"omitempty,min=1s"`

	MaxSaveAttempts int `yaml:"maxSaveAttempts,omitempty" validate:"omitempty,min=1,max=50"`

	Administrators []string `yaml:"administrators,omitempty" validate:"dive,required"`
	Promoters      []string `yaml:"promoters,omitempty" validate:"dive,required"`

	RaceTypes         []RaceType         `yaml:"raceTypes,omitempty" validate:"dive"`
	TemplateOverrides []TemplateOverride `yaml:"templateOverrides,omitempty" validate:"dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from race_roster_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads the configuration for an environment.
// For example, env="test" looks for race_roster_config.test.yaml
func LoadWithEnv(env string) (*Config, error) {
	name := configFileName + ".yaml"
	if env != "" {
		name = configFileName + "." + env + ".yaml"
	}

	configPath, err := findConfigFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, the rrule syntax and the template catalog
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, override := range cfg.TemplateOverrides {
		if _, err := rrule.StrToRRule(override.RRule); err != nil {
			return fmt.Errorf("invalid rrule in templateOverrides[%d]: %w", i, err)
		}
	}

	if _, err := cfg.Catalog(); err != nil {
		return fmt.Errorf("invalid race templates: %w", err)
	}

	return nil
}

// Catalog builds the race template catalog. Without configured race types the
// built-in defaults are used; overrides apply either way.
func (cfg *Config) Catalog() (*templates.Catalog, error) {
	types := templates.DefaultRaceTypes()
	if len(cfg.RaceTypes) > 0 {
		types = make([]templates.RaceType, 0, len(cfg.RaceTypes))
		for _, rt := range cfg.RaceTypes {
			allowWaitlist := true
			if rt.AllowWaitlist != nil {
				allowWaitlist = *rt.AllowWaitlist
			}
			types = append(types, templates.RaceType{
				Name:              rt.Name,
				RequiresEquipment: rt.RequiresEquipment,
				AllowWaitlist:     allowWaitlist,
				Slots:             slotTemplates(rt.Slots),
			})
		}
	}

	overrides := make([]templates.Override, 0, len(cfg.TemplateOverrides))
	for _, o := range cfg.TemplateOverrides {
		overrides = append(overrides, templates.Override{
			RRule:         o.RRule,
			RaceType:      o.RaceType,
			Group:         o.Group,
			Name:          o.Name,
			Capacity:      o.Capacity,
			CapacityDelta: o.CapacityDelta,
			AddSlots:      slotTemplates(o.AddSlots),
		})
	}

	return templates.NewCatalog(types, overrides)
}

// AuthorizationFor returns the capabilities configured for the actor
func (cfg *Config) AuthorizationFor(actorID string) allocator.AuthorizationContext {
	if slices.Contains(cfg.Administrators, actorID) {
		return allocator.AdminContext(actorID)
	}
	auth := allocator.MemberContext(actorID)
	if slices.Contains(cfg.Promoters, actorID) {
		auth.Capabilities = append(auth.Capabilities, allocator.CapPromote, allocator.CapBypassEligibility)
	}
	return auth
}

func slotTemplates(in []SlotTemplate) []templates.SlotTemplate {
	out := make([]templates.SlotTemplate, 0, len(in))
	for _, st := range in {
		out = append(out, templates.SlotTemplate{
			Group:       st.Group,
			Name:        st.Name,
			Capacity:    st.Capacity,
			GenderLimit: allocator.Gender(st.GenderLimit),
		})
	}
	return out
}

// findConfigFile searches for the named config file in the current directory and home directory
func findConfigFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", name)
}
