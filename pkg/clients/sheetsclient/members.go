package sheetsclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jakechorley/race-roster/pkg/core/model"
)

// Required column names in the members sheet
var memberFields = []string{
	"Member ID",
	"First name",
	"Last name",
	"Gender",
	"Membership",
	"License expiry",
}

// Optional columns; a missing column reads as empty
var optionalMemberFields = []string{
	"Display name",
	"Email",
	"VIP",
	"Experienced",
	"Active",
	"Leader",
	"New",
	"Equipment",
}

var licenseDateLayouts = []string{"2006-01-02", "2006/01/02", "02/01/2006"}

// valueReader is the part of Client the roster reads through
type valueReader interface {
	GetValues(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error)
}

// MemberRoster reads members from a tab of the roster spreadsheet
type MemberRoster struct {
	client  valueReader
	sheetID string
	tab     string
}

func NewMemberRoster(client *Client, sheetID, tab string) *MemberRoster {
	return &MemberRoster{client: client, sheetID: sheetID, tab: tab}
}

// ListMembers retrieves and parses members from the configured spreadsheet
func (r *MemberRoster) ListMembers(ctx context.Context) ([]model.Member, error) {
	values, err := r.client.GetValues(ctx, r.sheetID, r.tab)
	if err != nil {
		return nil, fmt.Errorf("failed to get member data: %w", err)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("spreadsheet is empty")
	}

	members, err := parseMembers(values)
	if err != nil {
		return nil, fmt.Errorf("failed to parse members: %w", err)
	}

	ComputeDisplayNames(members)

	return members, nil
}

// ComputeDisplayNames fills in display names that the roster left blank:
// - If first name is unique: use first name only
// - If first name + first letter of surname is unique: use "FirstName L."
// - Otherwise: use full name "FirstName LastName"
func ComputeDisplayNames(members []model.Member) {
	firstNameCounts := make(map[string]int)
	initialCounts := make(map[string]int)
	for _, m := range members {
		firstNameCounts[m.FirstName]++
		if key, ok := initialKey(m); ok {
			initialCounts[key]++
		}
	}

	for i := range members {
		m := &members[i]
		if m.DisplayName != "" {
			continue
		}

		if firstNameCounts[m.FirstName] == 1 {
			m.DisplayName = m.FirstName
			continue
		}

		if key, ok := initialKey(*m); ok && initialCounts[key] == 1 {
			m.DisplayName = key
			continue
		}

		m.DisplayName = strings.TrimSpace(m.FirstName + " " + m.LastName)
	}
}

func initialKey(m model.Member) (string, bool) {
	last := []rune(m.LastName)
	if len(last) == 0 {
		return "", false
	}
	return m.FirstName + " " + string(last[0]) + ".", true
}

// parseMembers converts raw spreadsheet data into Member structs
func parseMembers(raw [][]interface{}) ([]model.Member, error) {
	if len(raw) < 1 {
		return nil, fmt.Errorf("no header row found")
	}

	fieldIndexes := make(map[string]int)
	headerRow := raw[0]

	indexOf := func(field string) int {
		for i, cell := range headerRow {
			if cellStr, ok := cell.(string); ok && strings.TrimSpace(cellStr) == field {
				return i
			}
		}
		return -1
	}

	for _, field := range memberFields {
		index := indexOf(field)
		if index == -1 {
			return nil, fmt.Errorf("missing required field in header: %s", field)
		}
		fieldIndexes[field] = index
	}
	for _, field := range optionalMemberFields {
		if index := indexOf(field); index != -1 {
			fieldIndexes[field] = index
		}
	}

	getField := func(field string, row []interface{}) string {
		index, ok := fieldIndexes[field]
		if !ok || index >= len(row) {
			return ""
		}
		if str, ok := row[index].(string); ok {
			return strings.TrimSpace(str)
		}
		return ""
	}

	members := make([]model.Member, 0, len(raw)-1)
	for i := 1; i < len(raw); i++ {
		row := raw[i]

		id := getField("Member ID", row)
		// Skip empty rows (rows with no member ID)
		if id == "" {
			continue
		}

		status := model.MembershipStatus(getField("Membership", row))
		if !status.IsValid() {
			return nil, fmt.Errorf("invalid membership status %q for member in row %d", status, i+1)
		}

		expiry, err := parseLicenseExpiry(getField("License expiry", row))
		if err != nil {
			return nil, fmt.Errorf("invalid license expiry for member in row %d: %w", i+1, err)
		}

		members = append(members, model.Member{
			ID:               id,
			FirstName:        getField("First name", row),
			LastName:         getField("Last name", row),
			DisplayName:      getField("Display name", row),
			Email:            getField("Email", row),
			Gender:           getField("Gender", row),
			MembershipStatus: status,
			IsVIP:            parseFlag(getField("VIP", row)),
			IsExperienced:    parseFlag(getField("Experienced", row)),
			IsActive:         parseFlag(getField("Active", row)),
			IsLeader:         parseFlag(getField("Leader", row)),
			IsNew:            parseFlag(getField("New", row)),
			LicenseExpiry:    expiry,
			HasEquipment:     parseFlag(getField("Equipment", row)),
		})
	}

	return members, nil
}

// parseLicenseExpiry accepts ISO and day-first dates; empty means not recorded
func parseLicenseExpiry(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range licenseDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

func parseFlag(raw string) bool {
	switch strings.ToLower(raw) {
	case "true", "yes", "y", "1", "✓", "是":
		return true
	}
	return false
}
