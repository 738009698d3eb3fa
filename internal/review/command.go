// Package review drives the interactive review of outlier groups and applies
// the operator's corrections to the database.
package review

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Input validation errors. None of them change session state.
var (
	ErrInvalidCommand   = errors.New("invalid command")
	ErrInvalidSelection = errors.New("invalid or already removed")
	ErrInvalidValue     = errors.New("invalid number")
)

// Action is what a command asks the session to do.
type Action int

// Command actions.
const (
	ActionNext Action = iota
	ActionPrev
	ActionEdit
	ActionDelete
	ActionQuit
)

func (a Action) String() string {
	switch a {
	case ActionNext:
		return "next"
	case ActionPrev:
		return "prev"
	case ActionEdit:
		return "edit"
	case ActionDelete:
		return "delete"
	case ActionQuit:
		return "quit"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Command is a parsed operator command. Number is the 1-based group number for edit and delete.
type Command struct {
	Action Action
	Number int
}

// ParseCommand parses "n", "next", "p", "prev", "e5", "edit 5", "d5", "delete 5", "q" or "quit".
func ParseCommand(input string) (Command, error) {
	text := strings.ToLower(strings.TrimSpace(input))
	if text == "" {
		return Command{}, fmt.Errorf("%w: empty input", ErrInvalidCommand)
	}

	switch text {
	case "n", "next":
		return Command{Action: ActionNext}, nil
	case "p", "prev":
		return Command{Action: ActionPrev}, nil
	case "q", "quit":
		return Command{Action: ActionQuit}, nil
	}

	var action Action
	var rest string
	switch {
	case strings.HasPrefix(text, "edit"):
		action, rest = ActionEdit, text[len("edit"):]
	case strings.HasPrefix(text, "delete"):
		action, rest = ActionDelete, text[len("delete"):]
	case text[0] == 'e':
		action, rest = ActionEdit, text[1:]
	case text[0] == 'd':
		action, rest = ActionDelete, text[1:]
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrInvalidCommand, input)
	}

	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return Command{}, fmt.Errorf("%w: use e5 or d5", ErrInvalidCommand)
	}
	return Command{Action: action, Number: n}, nil
}

// EditChoice is the operator's answer to the new-value prompt.
type EditChoice struct {
	Value  float64
	Cancel bool
}

// ParseEditChoice interprets "c" (cancel), "m" (use mean) or a number.
// There is no default: empty input is invalid.
func ParseEditChoice(input string, mean float64) (EditChoice, error) {
	text := strings.ToLower(strings.TrimSpace(input))
	switch text {
	case "c", "cancel":
		return EditChoice{Cancel: true}, nil
	case "m", "mean":
		return EditChoice{Value: mean}, nil
	case "":
		return EditChoice{}, fmt.Errorf("%w: enter a value, 'm' or 'c'", ErrInvalidValue)
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return EditChoice{}, fmt.Errorf("%w: %q", ErrInvalidValue, input)
	}
	return EditChoice{Value: v}, nil
}

// ParseConfirm returns true only for an explicit yes.
func ParseConfirm(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
