package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ha-outliers/internal/model"
	"github.com/Veraticus/ha-outliers/internal/review"
	"github.com/Veraticus/ha-outliers/internal/service"
	"github.com/Veraticus/ha-outliers/internal/testutil"
)

type fixture struct {
	db      *testutil.TestDB
	session *review.Session
	spike   []int64
	dropout []int64
}

func newFixture(t *testing.T) (*fixture, Model) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	outdoor := db.AddEntity("sensor.outdoor")
	db.AddValues(outdoor, 19, 21)
	spike := db.AddValues(outdoor, 42.3, 42.3)

	power := db.AddEntity("sensor.power")
	dropout := db.AddValues(power, -9000)

	groups := []model.Group{
		{EntityID: "sensor.outdoor", MemberIDs: spike, Value: 42.3, MinValue: 42.3, MaxValue: 42.3, Mean: 20.5, Deviation: 21.8, TotalSamples: 300},
		{EntityID: "sensor.power", MemberIDs: dropout, Value: -9000, MinValue: -9000, MaxValue: -9000, Mean: 480, Deviation: 9.5, TotalSamples: 1000},
	}
	session := review.NewSession(groups, 25)
	conn := review.NewConnection(db.Storage, nil, service.RetryOptions{}, nil)
	ctrl := review.NewController(session, review.NewMutator("tui-test"), conn, nil)

	f := &fixture{db: db, session: session, spike: spike, dropout: dropout}
	return f, NewModel(context.Background(), ctrl)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds msg and runs any resulting mutation synchronously.
func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	if out.mode == modeWorking && cmd != nil {
		done := findMutation(cmd)
		require.NotNil(t, done, "expected a mutation command")
		return press(t, out, *done)
	}
	return out, cmd
}

// findMutation executes cmd, unwrapping batches, until it yields a mutationDoneMsg.
func findMutation(cmd tea.Cmd) *mutationDoneMsg {
	switch msg := cmd().(type) {
	case mutationDoneMsg:
		return &msg
	case tea.BatchMsg:
		for _, c := range msg {
			if c == nil {
				continue
			}
			if done, ok := c().(mutationDoneMsg); ok {
				return &done
			}
		}
	}
	return nil
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m, _ = press(t, m, runes(string(r)))
	}
	return m
}

func TestModel_InitialView(t *testing.T) {
	_, m := newFixture(t)

	view := m.View()
	assert.Contains(t, view, "Found 3 outlier(s) in 2 group(s)")
	assert.Contains(t, view, "sensor.outdoor")
	assert.Contains(t, view, "Page 1/1")
	assert.Nil(t, m.Init())
}

func TestModel_DeleteCursorRow(t *testing.T) {
	f, m := newFixture(t)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = press(t, m, runes("d"))
	require.Equal(t, modeConfirmDelete, m.mode)
	assert.Contains(t, m.View(), "Delete 1 record(s)? [y/N]")

	m, _ = press(t, m, runes("y"))
	assert.Equal(t, modeBrowse, m.mode)
	assert.Contains(t, m.status, "Deleted 1 record(s) of sensor.power")
	assert.Contains(t, m.View(), "(removed)")

	_, ok := f.db.StateValue(f.dropout[0])
	assert.False(t, ok)
	assert.Equal(t, 1, f.session.ActiveGroups())
}

func TestModel_DeleteDeclined(t *testing.T) {
	f, m := newFixture(t)

	m, _ = press(t, m, runes("d"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, modeBrowse, m.mode)
	assert.Equal(t, "Delete cancelled.", m.status)
	assert.Equal(t, review.StateBrowsing, f.session.State())
	assert.Equal(t, 2, f.session.ActiveGroups())
}

func TestModel_EditWithMean(t *testing.T) {
	f, m := newFixture(t)

	m, _ = press(t, m, runes("e"))
	require.Equal(t, modeEdit, m.mode)

	m = typeText(t, m, "x")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "Invalid number.", m.status)
	assert.Equal(t, modeEdit, m.mode)

	m = typeText(t, m, "m")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.status, "Updated 2 record(s) of sensor.outdoor")

	for _, id := range f.spike {
		v, _ := f.db.StateValue(id)
		assert.Equal(t, "20.5", v)
	}
}

func TestModel_EditCancelWithEscape(t *testing.T) {
	f, m := newFixture(t)

	m, _ = press(t, m, runes("e"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, modeBrowse, m.mode)
	assert.Equal(t, "Edit cancelled.", m.status)
	v, _ := f.db.StateValue(f.spike[0])
	assert.Equal(t, "42.3", v)
}

func TestModel_CommandLine(t *testing.T) {
	f, m := newFixture(t)

	m, _ = press(t, m, runes(":"))
	require.Equal(t, modeCommand, m.mode)
	m = typeText(t, m, "e2")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, modeEdit, m.mode)
	assert.Equal(t, "sensor.power", m.selection.Group.EntityID)

	m = typeText(t, m, "480")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	v, _ := f.db.StateValue(f.dropout[0])
	assert.Equal(t, "480", v)

	m, _ = press(t, m, runes(":"))
	m = typeText(t, m, "d2")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "Invalid or already removed.", m.status)

	m, _ = press(t, m, runes(":"))
	m = typeText(t, m, "bogus")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "Invalid format. Use: e5 or d5", m.status)
}

func TestModel_QuitsWhenEverythingCorrected(t *testing.T) {
	_, m := newFixture(t)

	m, _ = press(t, m, runes("d"))
	m, _ = press(t, m, runes("y"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = press(t, m, runes("d"))
	m, cmd := press(t, m, runes("y"))

	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_QuitAndInterrupt(t *testing.T) {
	f, m := newFixture(t)

	m, cmd := press(t, m, runes("q"))
	assert.True(t, m.quitting)
	assert.False(t, m.Interrupted())
	assert.Equal(t, review.StateQuit, f.session.State())
	require.NotNil(t, cmd)
	assert.Empty(t, m.View())

	_, m = newFixture(t)
	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, m.Interrupted())
	require.NotNil(t, cmd)
}

func TestModel_WindowResize(t *testing.T) {
	_, m := newFixture(t)
	m, _ = press(t, m, tea.WindowSizeMsg{Width: 160, Height: 20})
	assert.Equal(t, 160, m.width)
	assert.Equal(t, 10, m.table.Height(), "terminal height minus chrome, in body rows")

	m, _ = press(t, m, tea.WindowSizeMsg{Width: 160, Height: 80})
	assert.Equal(t, 25, m.table.Height(), "never more rows than a page")
}

func TestModel_InitialTableShowsFullPage(t *testing.T) {
	_, m := newFixture(t)
	assert.Equal(t, 25, m.table.Height())
}
