package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
)

func TestParseCommandLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{name: "plain", line: "showRace race-1", want: []string{"showRace", "race-1"}},
		{name: "double quotes", line: `createRace marathon "City Marathon" 2027-05-02`, want: []string{"createRace", "marathon", "City Marathon", "2027-05-02"}},
		{name: "single quotes", line: `setRoleTag r s m 'team leader'`, want: []string{"setRoleTag", "r", "s", "m", "team leader"}},
		{name: "unicode", line: `setRoleTag r s m "帶隊 教官"`, want: []string{"setRoleTag", "r", "s", "m", "帶隊 教官"}},
		{name: "empty quoted arg", line: `setRoleTag r s m ""`, want: []string{"setRoleTag", "r", "s", "m", ""}},
		{name: "extra spaces", line: "  listRaces   ", want: []string{"listRaces"}},
		{name: "blank", line: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCommandLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommandLine_UnclosedQuote(t *testing.T) {
	_, err := parseCommandLine(`createRace marathon "City Marathon`)

	assert.ErrorContains(t, err, "unclosed quote")
}

func newSessionRoot(app *AppContext) *cobra.Command {
	root := &cobra.Command{Use: "race-roster"}
	root.AddCommand(CreateRaceCmd(app), ListRacesCmd(app), InteractiveCmd(app))
	return root
}

func TestInteractive_Session(t *testing.T) {
	app := newTestApp(t)
	root := newSessionRoot(app)
	root.SetIn(strings.NewReader(strings.Join([]string{
		`createRace marathon "City Marathon" 2027-05-02`,
		"",
		"listRaces",
		"bogus",
		`createRace "unclosed`,
		"help",
		"exit",
		"listRaces",
	}, "\n")))

	out, err := run(root, "interactive")

	require.NoError(t, err)
	assert.Contains(t, out, "Race created successfully")
	assert.Contains(t, out, "0/21")
	assert.Contains(t, out, "Unknown command: bogus")
	assert.Contains(t, out, "Error parsing command: unclosed quote")
	assert.Contains(t, out, "Available commands:")
	assert.NotContains(t, out, "  interactive ")
	assert.Contains(t, out, "Goodbye!")
	assert.Equal(t, 1, strings.Count(out, "0/21"), "lines after exit must not run")
}

func TestInteractive_EndOfInput(t *testing.T) {
	app := newTestApp(t)
	root := newSessionRoot(app)
	root.SetIn(strings.NewReader("listRaces\n"))

	out, err := run(root, "interactive")

	require.NoError(t, err)
	assert.Contains(t, out, "No races found.")
	assert.NotContains(t, out, "Goodbye!")
}

func TestSession_ArgsValidation(t *testing.T) {
	app := newTestApp(t)
	var out bytes.Buffer
	root := newSessionRoot(app)
	root.SetOut(&out)
	s := newSession(root, &out)

	quit := s.runLine("createRace marathon")

	assert.False(t, quit)
	assert.Contains(t, out.String(), "❌ Error:")
	races, err := app.Service.ListRaces(app.Ctx)
	require.NoError(t, err)
	assert.Empty(t, races)
}

func TestSession_GlobalFlagsAreFixed(t *testing.T) {
	app := newTestApp(t)
	var out bytes.Buffer
	root := newSessionRoot(app)
	root.AddCommand(ActorCmd(app))
	actor := "admin-1"
	root.PersistentFlags().StringVarP(&actor, "actor", "a", "", "Member ID to act as")
	root.SetOut(&out)
	s := newSession(root, &out)

	s.runLine("actor --actor m-9")

	assert.Contains(t, out.String(), "--actor cannot be changed inside a session")
	assert.Equal(t, "admin-1", actor)
	assert.Equal(t, "admin-1", app.Actor)

	out.Reset()
	s.runLine("actor m-1")
	assert.Contains(t, out.String(), "Acting as m-1 [member]")
	assert.Equal(t, "admin-1", actor, "global flag keeps its startup value")
}

func TestSession_LocalFlagsResetBetweenLines(t *testing.T) {
	app := newTestApp(t)
	race, _ := createMarathon(t, app)
	var out bytes.Buffer
	root := newSessionRoot(app)
	root.AddCommand(AddSlotCmd(app))
	root.SetOut(&out)
	s := newSession(root, &out)

	s.runLine(`addSlot ` + race.ID + ` Medical "Female tent" 2 --gender F --id tent-f`)
	s.runLine(`addSlot ` + race.ID + ` Medical "Any tent" 2`)

	got, err := app.Service.GetRace(app.Ctx, race.ID)
	require.NoError(t, err)
	female, ok := got.Slot("tent-f")
	require.True(t, ok, out.String())
	assert.Equal(t, allocator.GenderFemale, female.GenderLimit)

	last := got.Slots[len(got.Slots)-1]
	assert.Equal(t, "Any tent", last.Name)
	assert.NotEqual(t, "tent-f", last.ID)
	assert.Equal(t, allocator.GenderAny, last.GenderLimit)
}
