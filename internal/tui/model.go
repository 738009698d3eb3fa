// Package tui is the full-screen Bubble Tea front end of the review session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/ha-outliers/internal/report"
	"github.com/Veraticus/ha-outliers/internal/review"
)

// mode is what the screen is waiting for.
type mode int

const (
	modeBrowse mode = iota
	modeCommand
	modeEdit
	modeConfirmDelete
	modeWorking
)

// mutationDoneMsg carries the result of a mutation run off the UI goroutine.
type mutationDoneMsg struct {
	outcome review.Outcome
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusWarning
	statusError
)

// Model is the review screen.
type Model struct {
	ctx         context.Context
	ctrl        *review.Controller
	selection   *review.Selection
	theme       Theme
	keymap      KeyMap
	summary     string
	pageInfo    string
	status      string
	rows        []review.Row
	table       table.Model
	input       textinput.Model
	spinner     spinner.Model
	width       int
	height      int
	statusKind  statusKind
	mode        mode
	interrupted bool
	quitting    bool
}

// NewModel creates the review screen over ctrl. ctx bounds reconnect attempts.
func NewModel(ctx context.Context, ctrl *review.Controller) Model {
	theme := DefaultTheme

	t := table.New(
		table.WithColumns(columnsFor(100)),
		table.WithFocused(true),
		table.WithHeight(review.DefaultPageSize),
	)
	s := table.DefaultStyles()
	s.Header = theme.Header
	s.Selected = theme.Selected
	t.SetStyles(s)

	input := textinput.New()
	input.CharLimit = 32

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Title.Foreground(theme.Primary)

	m := Model{
		ctx:     ctx,
		ctrl:    ctrl,
		theme:   theme,
		keymap:  DefaultKeyMap(),
		table:   t,
		input:   input,
		spinner: sp,
		width:   100,
		height:  30,
	}
	m.setTableRows(ctrl.Session().PageSize())
	m.refresh()
	return m
}

// Interrupted reports whether the operator pressed Ctrl+C.
func (m Model) Interrupted() bool {
	return m.interrupted
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(columnsFor(msg.Width))
		m.setTableRows(max(3, min(m.ctrl.Session().PageSize(), msg.Height-10)))
		return m, nil

	case mutationDoneMsg:
		m.finishMutation(msg.outcome)
		if m.quitting || m.ctrl.Session().Done() {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if m.mode != modeWorking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keymap.ForceQuit) {
			m.interrupted = true
			m.quitting = true
			if m.mode == modeWorking {
				// the running transaction finishes first
				return m, nil
			}
			return m, tea.Quit
		}
		switch m.mode {
		case modeBrowse:
			return m.updateBrowse(msg)
		case modeCommand:
			return m.updateCommand(msg)
		case modeEdit:
			return m.updateEdit(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		}
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	session := m.ctrl.Session()
	switch {
	case key.Matches(msg, m.keymap.Quit):
		session.Quit()
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.NextPage):
		session.Next()
		m.refresh()
		m.table.SetCursor(0)
		return m, nil
	case key.Matches(msg, m.keymap.PrevPage):
		session.Prev()
		m.refresh()
		m.table.SetCursor(0)
		return m, nil
	case key.Matches(msg, m.keymap.Edit):
		return m.selectCursor(review.ActionEdit)
	case key.Matches(msg, m.keymap.Delete):
		return m.selectCursor(review.ActionDelete)
	case key.Matches(msg, m.keymap.Command):
		m.mode = modeCommand
		m.input.Reset()
		m.input.Prompt = ":"
		m.input.Placeholder = "e5, d5, n, p, q"
		cmd := m.input.Focus()
		return m, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateCommand(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		m.input.Blur()
		m.mode = modeBrowse
		return m, nil
	case key.Matches(msg, m.keymap.Accept):
		m.input.Blur()
		m.mode = modeBrowse
		cmd, err := review.ParseCommand(m.input.Value())
		if err != nil {
			m.setStatus(statusError, "Invalid format. Use: e5 or d5")
			return m, nil
		}
		return m.handleCommand(cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		return m.cancelSelection("Edit cancelled.")
	case key.Matches(msg, m.keymap.Accept):
		choice, err := review.ParseEditChoice(m.input.Value(), m.selection.Group.Mean)
		if err != nil {
			m.setStatus(statusError, "Invalid number.")
			m.input.Reset()
			return m, nil
		}
		if choice.Cancel {
			return m.cancelSelection("Edit cancelled.")
		}
		m.input.Blur()
		return m.startMutation(choice.Value)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.Confirm) {
		return m.startMutation(0)
	}
	return m.cancelSelection("Delete cancelled.")
}

func (m Model) handleCommand(cmd review.Command) (tea.Model, tea.Cmd) {
	sel, err := m.ctrl.Session().Handle(cmd)
	if err != nil {
		if errors.Is(err, review.ErrInvalidSelection) {
			m.setStatus(statusError, "Invalid or already removed.")
		} else {
			m.setStatus(statusError, err.Error())
		}
		return m, nil
	}
	switch cmd.Action {
	case review.ActionQuit:
		m.quitting = true
		return m, tea.Quit
	case review.ActionEdit, review.ActionDelete:
		return m.beginSelection(sel)
	}
	m.refresh()
	m.table.SetCursor(0)
	return m, nil
}

func (m Model) selectCursor(action review.Action) (tea.Model, tea.Cmd) {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.rows) {
		return m, nil
	}
	return m.handleCommand(review.Command{Action: action, Number: m.rows[cursor].Number})
}

func (m Model) beginSelection(sel review.Selection) (tea.Model, tea.Cmd) {
	m.selection = &sel
	m.status = ""
	if sel.Action == review.ActionDelete {
		m.mode = modeConfirmDelete
		return m, nil
	}
	m.mode = modeEdit
	m.input.Reset()
	m.input.Prompt = "New value: "
	m.input.Placeholder = fmt.Sprintf("m = mean (%s), c = cancel", report.FormatNumber(sel.Group.Mean))
	cmd := m.input.Focus()
	return m, cmd
}

func (m Model) cancelSelection(text string) (tea.Model, tea.Cmd) {
	_ = m.ctrl.Session().Cancel()
	m.input.Blur()
	m.selection = nil
	m.mode = modeBrowse
	m.setStatus(statusInfo, text)
	return m, nil
}

// startMutation runs the mutation off the UI goroutine. The session is not
// read by View until the result arrives.
func (m Model) startMutation(value float64) (tea.Model, tea.Cmd) {
	m.mode = modeWorking
	ctrl, ctx := m.ctrl, m.ctx
	apply := func() tea.Msg {
		return mutationDoneMsg{outcome: ctrl.Apply(ctx, value)}
	}
	return m, tea.Batch(apply, m.spinner.Tick)
}

func (m *Model) finishMutation(out review.Outcome) {
	m.mode = modeBrowse
	m.selection = nil
	m.refresh()

	verb := "Updated"
	if out.Selection.Action == review.ActionDelete {
		verb = "Deleted"
	}
	switch {
	case out.Committed():
		m.setStatus(statusSuccess, fmt.Sprintf("%s %d record(s) of %s", verb, out.Affected, out.Selection.Group.EntityID))
	case out.Reconnected:
		m.setStatus(statusWarning, "Connection lost and re-established. Nothing was changed; retry.")
	default:
		m.setStatus(statusError, fmt.Sprintf("Error: %v", out.Err))
	}
}

func (m *Model) setStatus(kind statusKind, text string) {
	m.statusKind = kind
	m.status = text
}

// refresh copies the current page out of the session.
func (m *Model) refresh() {
	session := m.ctrl.Session()
	m.rows = session.Visible()
	m.summary = report.FormatSummary(session.ActiveRecords(), session.ActiveGroups())
	m.pageInfo = fmt.Sprintf("Page %d/%d", session.Page()+1, max(1, session.TotalPages()))

	rows := make([]table.Row, len(m.rows))
	for i := range m.rows {
		rows[i] = table.Row(report.GroupRow(m.rows[i].Number, &m.rows[i].Group))
	}
	m.table.SetRows(rows)
}

func columnsFor(width int) []table.Column {
	entity := max(20, width-78)
	widths := []int{4, entity, 20, 10, 7, 13, 19}
	cols := make([]table.Column, len(report.Columns))
	for i, title := range report.Columns {
		cols[i] = table.Column{Title: title, Width: widths[i]}
	}
	return cols
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.Title.Render(m.summary))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(m.theme.Subtitle.Render(m.pageInfo))
	b.WriteString("\n\n")

	switch m.mode {
	case modeCommand:
		b.WriteString(m.input.View())
	case modeEdit:
		b.WriteString(m.renderSelection())
		b.WriteString("\n")
		b.WriteString(m.input.View())
	case modeConfirmDelete:
		b.WriteString(m.renderSelection())
		b.WriteString("\n")
		b.WriteString(m.theme.StatusWarning.Render(fmt.Sprintf("Delete %d record(s)? [y/N]", m.selection.Group.Count())))
	case modeWorking:
		b.WriteString(m.spinner.View() + " Applying...")
	default:
		b.WriteString(m.renderHelp(m.keymap.ShortHelp()))
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.statusStyle().Render(m.status))
	}
	return b.String()
}

func (m Model) renderSelection() string {
	g := m.selection.Group
	lines := []string{
		m.theme.Title.Render(fmt.Sprintf("#%d %s", m.selection.Number(), g.EntityID)),
		fmt.Sprintf("Value %s  Mean %s  Range %s … %s  %s %s",
			report.FormatValueRange(&g), report.FormatNumber(g.Mean),
			report.FormatNumber(g.LowerBound), report.FormatNumber(g.UpperBound),
			report.FormatDeviation(g.Deviation), g.Key.Direction),
		fmt.Sprintf("Records %s  Latest %s", report.FormatCount(&g), report.FormatTimestamp(g.LatestTimestamp())),
	}
	return m.theme.RoundedBox.Render(strings.Join(lines, "\n"))
}

func (m Model) renderHelp(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return m.theme.Subtitle.Render(strings.Join(parts, " • "))
}

func (m Model) statusStyle() lipgloss.Style {
	switch m.statusKind {
	case statusSuccess:
		return m.theme.StatusSuccess
	case statusWarning:
		return m.theme.StatusWarning
	case statusError:
		return m.theme.StatusError
	default:
		return m.theme.StatusInfo
	}
}

// setTableRows sizes the table to show n body rows. SetHeight counts the
// header lines, so the difference is measured and added back.
func (m *Model) setTableRows(n int) {
	m.table.SetHeight(n)
	if header := n - m.table.Height(); header > 0 {
		m.table.SetHeight(n + header)
	}
}
