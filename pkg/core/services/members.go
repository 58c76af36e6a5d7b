package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
	"github.com/jakechorley/race-roster/pkg/core/model"
)

var ErrMemberNotFound = errors.New("member not found")

// MemberDirectory resolves members from the roster
type MemberDirectory interface {
	ListMembers(ctx context.Context) ([]model.Member, error)
}

// FindMember returns the member with the given ID
func FindMember(ctx context.Context, directory MemberDirectory, memberID string) (model.Member, error) {
	members, err := directory.ListMembers(ctx)
	if err != nil {
		return model.Member{}, fmt.Errorf("failed to list members: %w", err)
	}
	for _, m := range members {
		if m.ID == memberID {
			return m, nil
		}
	}
	return model.Member{}, fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
}

// CandidateFromMember converts a roster member into the attributes the engine ranks and checks
func CandidateFromMember(m model.Member) allocator.Candidate {
	displayName := m.DisplayName
	if displayName == "" {
		displayName = strings.TrimSpace(m.FirstName + " " + m.LastName)
	}
	return allocator.Candidate{
		ID:               m.ID,
		DisplayName:      displayName,
		Gender:           ParseGender(m.Gender),
		IsVIP:            m.IsVIP,
		IsExperienced:    m.IsExperienced,
		IsActive:         m.IsActive,
		IsLeader:         m.IsLeader,
		MembershipActive: m.MembershipStatus == model.MembershipActive,
		LicenseExpiry:    m.LicenseExpiry,
		HasEquipment:     m.HasEquipment,
		IsNew:            m.IsNew,
	}
}

// ParseGender normalises roster gender values; unknown values map to ""
func ParseGender(raw string) allocator.Gender {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "m", "male", "男":
		return allocator.GenderMale
	case "f", "female", "女":
		return allocator.GenderFemale
	}
	return ""
}
