package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/ha-outliers/internal/review"
)

// ErrInterrupted is returned when the operator leaves with Ctrl+C.
var ErrInterrupted = errors.New("review interrupted")

// Run shows the review screen until the operator quits or nothing is left.
// Ctrl+C and ctx cancellation end the program once any running mutation is done.
func Run(ctx context.Context, ctrl *review.Controller, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewModel(ctx, ctrl), opts...)

	final, err := p.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("review screen: %w", err)
	}
	if m, ok := final.(Model); ok && m.Interrupted() {
		return ErrInterrupted
	}
	return nil
}
