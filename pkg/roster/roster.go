package roster

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/race-roster/pkg/core/model"
)

// memberRecord is one member as written in the roster file
type memberRecord struct {
	ID            string `yaml:"id" validate:"required"`
	FirstName     string `yaml:"firstName" validate:"required"`
	LastName      string `yaml:"lastName"`
	DisplayName   string `yaml:"displayName,omitempty"`
	Email         string `yaml:"email,omitempty" validate:"omitempty,email"`
	Gender        string `yaml:"gender,omitempty"`
	Membership    string `yaml:"membership" validate:"required,oneof=Active Lapsed Pending Inactive"`
	LicenseExpiry string `yaml:"licenseExpiry,omitempty" validate:"omitempty,datetime=2006-01-02"`
	VIP           bool   `yaml:"vip,omitempty"`
	Experienced   bool   `yaml:"experienced,omitempty"`
	Active        bool   `yaml:"active,omitempty"`
	Leader        bool   `yaml:"leader,omitempty"`
	New           bool   `yaml:"new,omitempty"`
	Equipment     bool   `yaml:"equipment,omitempty"`
}

type rosterFile struct {
	Members []memberRecord `yaml:"members" validate:"dive"`
}

var validate = validator.New()

// File reads members from a YAML roster file.
// The file is read on every call so edits are picked up without a restart.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

// ListMembers parses and validates the roster file
func (f *File) ListMembers(_ context.Context) ([]model.Member, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}
	return Parse(data)
}

// Parse decodes roster YAML into members, rejecting duplicate IDs
func Parse(data []byte) ([]model.Member, error) {
	var file rosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse roster file: %w", err)
	}

	if err := validate.Struct(&file); err != nil {
		return nil, fmt.Errorf("roster validation failed: %w", err)
	}

	seen := make(map[string]bool, len(file.Members))
	members := make([]model.Member, 0, len(file.Members))
	for _, r := range file.Members {
		if seen[r.ID] {
			return nil, fmt.Errorf("member %s listed twice", r.ID)
		}
		seen[r.ID] = true

		var expiry time.Time
		if r.LicenseExpiry != "" {
			// Format already checked by the datetime tag
			expiry, _ = time.Parse(time.DateOnly, r.LicenseExpiry)
		}

		members = append(members, model.Member{
			ID:               r.ID,
			FirstName:        r.FirstName,
			LastName:         r.LastName,
			DisplayName:      r.DisplayName,
			Email:            r.Email,
			Gender:           r.Gender,
			MembershipStatus: model.MembershipStatus(r.Membership),
			IsVIP:            r.VIP,
			IsExperienced:    r.Experienced,
			IsActive:         r.Active,
			IsLeader:         r.Leader,
			IsNew:            r.New,
			LicenseExpiry:    expiry,
			HasEquipment:     r.Equipment,
		})
	}
	return members, nil
}
