package review

import (
	"errors"
	"fmt"

	"github.com/Veraticus/ha-outliers/internal/model"
)

// DefaultPageSize is the number of groups shown per page.
const DefaultPageSize = 25

// ErrWrongState is returned when an operation is not allowed in the current state.
var ErrWrongState = errors.New("operation not allowed in current state")

// State is a review session state.
type State int

// Session states.
const (
	StateBrowsing State = iota
	StateSelecting
	StateMutating
	StateQuit
)

func (s State) String() string {
	switch s {
	case StateBrowsing:
		return "browsing"
	case StateSelecting:
		return "selecting"
	case StateMutating:
		return "mutating"
	case StateQuit:
		return "quit"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Selection is a group chosen for a mutation.
type Selection struct {
	Group  model.Group
	Action Action
	Index  int // 0-based position in the full group list
}

// Number returns the 1-based number shown to the operator.
func (s Selection) Number() int {
	return s.Index + 1
}

// Row is one displayed line of the current page.
type Row struct {
	Group  model.Group
	Number int
}

// Session owns the ordered group list for the lifetime of a review. Groups are
// never reordered or dropped; a corrected group is only flagged as removed so
// the numbers shown to the operator stay stable.
type Session struct {
	groups   []model.Group
	selected *Selection
	pageSize int
	page     int
	state    State
}

// NewSession starts a session in the browsing state on the first page.
func NewSession(groups []model.Group, pageSize int) *Session {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Session{
		groups:   groups,
		pageSize: pageSize,
		state:    StateBrowsing,
	}
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Len returns the number of groups, removed ones included.
func (s *Session) Len() int {
	return len(s.groups)
}

// Group returns a copy of the group at the 0-based index.
func (s *Session) Group(index int) (model.Group, bool) {
	if index < 0 || index >= len(s.groups) {
		return model.Group{}, false
	}
	return s.groups[index], true
}

// PageSize returns the number of groups per page.
func (s *Session) PageSize() int {
	return s.pageSize
}

// TotalPages returns ceil(groups / page size).
func (s *Session) TotalPages() int {
	return (len(s.groups) + s.pageSize - 1) / s.pageSize
}

// Page returns the current 0-based page, clamped to the valid range.
func (s *Session) Page() int {
	s.page = s.clamp(s.page)
	return s.page
}

// SetPage moves to page, clamped to the valid range.
func (s *Session) SetPage(page int) {
	s.page = s.clamp(page)
}

func (s *Session) clamp(page int) int {
	last := s.TotalPages() - 1
	if page > last {
		page = last
	}
	if page < 0 {
		page = 0
	}
	return page
}

// PageBounds returns the half-open index range of the current page.
func (s *Session) PageBounds() (start, end int) {
	start = s.Page() * s.pageSize
	end = min(start+s.pageSize, len(s.groups))
	return start, end
}

// Visible returns the rows of the current page.
func (s *Session) Visible() []Row {
	start, end := s.PageBounds()
	rows := make([]Row, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, Row{Number: i + 1, Group: s.groups[i]})
	}
	return rows
}

// ActiveGroups returns the number of groups not yet removed.
func (s *Session) ActiveGroups() int {
	n := 0
	for i := range s.groups {
		if !s.groups[i].Removed {
			n++
		}
	}
	return n
}

// ActiveRecords returns the number of outlier records in groups not yet removed.
func (s *Session) ActiveRecords() int {
	n := 0
	for i := range s.groups {
		if !s.groups[i].Removed {
			n += s.groups[i].Count()
		}
	}
	return n
}

// Done reports whether nothing is left to review.
func (s *Session) Done() bool {
	return s.ActiveGroups() == 0
}

// Selected returns the group being edited or deleted, if any.
func (s *Session) Selected() (Selection, bool) {
	if s.selected == nil {
		return Selection{}, false
	}
	return *s.selected, true
}

// Handle applies a browsing command. For edit and delete it validates the
// number and moves to the selecting state, returning the selection.
// Invalid input leaves the state unchanged.
func (s *Session) Handle(cmd Command) (Selection, error) {
	if s.state != StateBrowsing {
		return Selection{}, fmt.Errorf("%w: %s while %s", ErrWrongState, cmd.Action, s.state)
	}

	switch cmd.Action {
	case ActionNext:
		s.Next()
	case ActionPrev:
		s.Prev()
	case ActionQuit:
		s.Quit()
	case ActionEdit, ActionDelete:
		return s.Select(cmd.Action, cmd.Number)
	default:
		return Selection{}, fmt.Errorf("%w: %s", ErrInvalidCommand, cmd.Action)
	}

	return Selection{}, nil
}

// Next moves one page forward unless on the last page.
func (s *Session) Next() {
	if s.Page() < s.TotalPages()-1 {
		s.page++
	}
}

// Prev moves one page back unless on the first page.
func (s *Session) Prev() {
	if s.Page() > 0 {
		s.page--
	}
}

// Select chooses the group with the 1-based number for action.
func (s *Session) Select(action Action, number int) (Selection, error) {
	if s.state != StateBrowsing {
		return Selection{}, fmt.Errorf("%w: select while %s", ErrWrongState, s.state)
	}
	index := number - 1
	if index < 0 || index >= len(s.groups) || s.groups[index].Removed {
		return Selection{}, fmt.Errorf("%w: %d", ErrInvalidSelection, number)
	}
	sel := Selection{Index: index, Action: action, Group: s.groups[index]}
	s.selected = &sel
	s.state = StateSelecting
	return sel, nil
}

// MarkRemoved flags the group at the 0-based index as corrected.
func (s *Session) MarkRemoved(index int) {
	if index >= 0 && index < len(s.groups) {
		s.groups[index].Removed = true
	}
}

// Cancel abandons the current selection without touching storage.
func (s *Session) Cancel() error {
	if s.state != StateSelecting {
		return fmt.Errorf("%w: cancel while %s", ErrWrongState, s.state)
	}
	s.selected = nil
	s.state = StateBrowsing
	return nil
}

// BeginMutation marks the selection as being applied.
func (s *Session) BeginMutation() (Selection, error) {
	if s.state != StateSelecting || s.selected == nil {
		return Selection{}, fmt.Errorf("%w: mutate while %s", ErrWrongState, s.state)
	}
	s.state = StateMutating
	return *s.selected, nil
}

// CompleteMutation returns to browsing on the page holding the selected group.
// The group is flagged removed only when the mutation committed.
func (s *Session) CompleteMutation(committed bool) error {
	if s.state != StateMutating || s.selected == nil {
		return fmt.Errorf("%w: complete while %s", ErrWrongState, s.state)
	}
	index := s.selected.Index
	if committed {
		s.MarkRemoved(index)
	}
	s.SetPage(index / s.pageSize)
	s.selected = nil
	s.state = StateBrowsing
	return nil
}

// Quit ends the session.
func (s *Session) Quit() {
	s.selected = nil
	s.state = StateQuit
}
