package roster

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/race-roster/pkg/core/model"
)

const sampleRoster = `
members:
  - id: m-1
    firstName: Mei
    lastName: Lin
    gender: 女
    email: mei@example.com
    membership: Active
    licenseExpiry: "2027-03-31"
    experienced: true
    active: true
    leader: true
  - id: m-2
    firstName: Jun
    lastName: Chen
    displayName: Jun C.
    membership: Lapsed
    vip: true
`

func TestFile_ListMembers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "members.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRoster), 0644))

	members, err := NewFile(path).ListMembers(context.Background())

	require.NoError(t, err)
	require.Len(t, members, 2)

	mei := members[0]
	assert.Equal(t, "m-1", mei.ID)
	assert.Equal(t, "女", mei.Gender)
	assert.Equal(t, model.MembershipActive, mei.MembershipStatus)
	assert.Equal(t, time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC), mei.LicenseExpiry)
	assert.True(t, mei.IsExperienced)
	assert.True(t, mei.IsActive)
	assert.True(t, mei.IsLeader)
	assert.False(t, mei.IsVIP)

	jun := members[1]
	assert.Equal(t, "Jun C.", jun.DisplayName)
	assert.Equal(t, model.MembershipLapsed, jun.MembershipStatus)
	assert.True(t, jun.LicenseExpiry.IsZero())
	assert.True(t, jun.IsVIP)
}

func TestFile_MissingFile(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "absent.yaml")).ListMembers(context.Background())

	assert.ErrorContains(t, err, "failed to read roster file")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		contains string
	}{
		{name: "invalid yaml", yaml: "members: [", contains: "failed to parse roster file"},
		{name: "missing id", yaml: "members:\n  - firstName: Mei\n    membership: Active\n", contains: "validation failed"},
		{name: "unknown membership", yaml: "members:\n  - id: m-1\n    firstName: Mei\n    membership: Honorary\n", contains: "validation failed"},
		{name: "bad expiry", yaml: "members:\n  - id: m-1\n    firstName: Mei\n    membership: Active\n    licenseExpiry: \"31/03/2027\"\n", contains: "validation failed"},
		{name: "bad email", yaml: "members:\n  - id: m-1\n    firstName: Mei\n    membership: Active\n    email: mei\n", contains: "validation failed"},
		{
			name:     "duplicate id",
			yaml:     "members:\n  - id: m-1\n    firstName: Mei\n    membership: Active\n  - id: m-1\n    firstName: Jun\n    membership: Active\n",
			contains: "listed twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.contains)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	members, err := Parse([]byte("members: []\n"))

	require.NoError(t, err)
	assert.Empty(t, members)
}
