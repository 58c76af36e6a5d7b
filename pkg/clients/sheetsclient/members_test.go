package sheetsclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/race-roster/pkg/core/model"
)

type mockValueReader struct {
	values [][]interface{}
	err    error
	ranges []string
}

func (m *mockValueReader) GetValues(_ context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error) {
	m.ranges = append(m.ranges, spreadsheetID+"!"+sheetRange)
	if m.err != nil {
		return nil, m.err
	}
	return m.values, nil
}

func memberSheet(rows ...[]interface{}) [][]interface{} {
	header := []interface{}{"Member ID", "First name", "Last name", "Gender", "Membership", "License expiry", "VIP", "Leader", "Equipment", "Email"}
	return append([][]interface{}{header}, rows...)
}

func TestListMembers(t *testing.T) {
	reader := &mockValueReader{values: memberSheet(
		[]interface{}{"m-1", "Mei", "Lin", "女", "Active", "2027-03-31", "TRUE", "", "yes", "mei@example.com"},
		[]interface{}{"", "", "", "", "", ""},
		[]interface{}{"m-2", "Jun", "Chen", "M", "Lapsed", ""},
	)}
	roster := &MemberRoster{client: reader, sheetID: "sheet123", tab: "Members"}

	members, err := roster.ListMembers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"sheet123!Members"}, reader.ranges)
	require.Len(t, members, 2)

	mei := members[0]
	assert.Equal(t, "m-1", mei.ID)
	assert.Equal(t, "Mei", mei.DisplayName)
	assert.Equal(t, "女", mei.Gender)
	assert.Equal(t, model.MembershipActive, mei.MembershipStatus)
	assert.Equal(t, time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC), mei.LicenseExpiry)
	assert.True(t, mei.IsVIP)
	assert.False(t, mei.IsLeader)
	assert.True(t, mei.HasEquipment)
	assert.Equal(t, "mei@example.com", mei.Email)

	jun := members[1]
	assert.Equal(t, model.MembershipLapsed, jun.MembershipStatus)
	assert.True(t, jun.LicenseExpiry.IsZero())
	assert.Empty(t, jun.Email)
}

func TestListMembers_Errors(t *testing.T) {
	tests := []struct {
		name     string
		reader   *mockValueReader
		contains string
	}{
		{name: "read failure", reader: &mockValueReader{err: errors.New("quota exceeded")}, contains: "quota exceeded"},
		{name: "empty sheet", reader: &mockValueReader{}, contains: "spreadsheet is empty"},
		{
			name:     "missing column",
			reader:   &mockValueReader{values: [][]interface{}{{"Member ID", "First name"}}},
			contains: "missing required field in header: Last name",
		},
		{
			name:     "invalid membership",
			reader:   &mockValueReader{values: memberSheet([]interface{}{"m-1", "Mei", "Lin", "F", "Honorary", ""})},
			contains: "invalid membership status",
		},
		{
			name:     "invalid expiry",
			reader:   &mockValueReader{values: memberSheet([]interface{}{"m-1", "Mei", "Lin", "F", "Active", "next year"})},
			contains: "invalid license expiry for member in row 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roster := &MemberRoster{client: tt.reader, sheetID: "sheet123", tab: "Members"}

			_, err := roster.ListMembers(context.Background())

			assert.ErrorContains(t, err, tt.contains)
		})
	}
}

func TestComputeDisplayNames(t *testing.T) {
	members := []model.Member{
		{ID: "1", FirstName: "Mei", LastName: "Lin"},
		{ID: "2", FirstName: "Jun", LastName: "Chen"},
		{ID: "3", FirstName: "Jun", LastName: "Wang"},
		{ID: "4", FirstName: "Wei", LastName: "Zhang"},
		{ID: "5", FirstName: "Wei", LastName: "Zhou"},
		{ID: "6", FirstName: "Ann", LastName: "Lee", DisplayName: "Dr Lee"},
		{ID: "7", FirstName: "小明", LastName: "王"},
		{ID: "8", FirstName: "小明", LastName: "李"},
	}

	ComputeDisplayNames(members)

	assert.Equal(t, "Mei", members[0].DisplayName)
	assert.Equal(t, "Jun C.", members[1].DisplayName)
	assert.Equal(t, "Jun W.", members[2].DisplayName)
	assert.Equal(t, "Wei Zhang", members[3].DisplayName)
	assert.Equal(t, "Wei Zhou", members[4].DisplayName)
	assert.Equal(t, "Dr Lee", members[5].DisplayName)
	assert.Equal(t, "小明 王.", members[6].DisplayName)
	assert.Equal(t, "小明 李.", members[7].DisplayName)
}

func TestParseLicenseExpiry(t *testing.T) {
	want := time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC)

	for _, raw := range []string{"2027-03-31", "2027/03/31", "31/03/2027"} {
		got, err := parseLicenseExpiry(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	got, err := parseLicenseExpiry("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
