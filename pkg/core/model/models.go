package model

import "time"

type MembershipStatus string

const (
	MembershipActive   MembershipStatus = "Active"
	MembershipLapsed   MembershipStatus = "Lapsed"
	MembershipPending  MembershipStatus = "Pending"
	MembershipInactive MembershipStatus = "Inactive"
)

func (s MembershipStatus) IsValid() bool {
	switch s {
	case MembershipActive, MembershipLapsed, MembershipPending, MembershipInactive:
		return true
	}
	return false
}

// Member represents a member of the medical team as held in the roster
type Member struct {
	ID               string
	FirstName        string
	LastName         string
	DisplayName      string
	Email            string
	Gender           string // Raw roster value, normalised when converted to a candidate
	MembershipStatus MembershipStatus

	IsVIP         bool
	IsExperienced bool
	IsActive      bool
	IsLeader      bool
	IsNew         bool

	LicenseExpiry time.Time // Zero if not recorded
	HasEquipment  bool
}
