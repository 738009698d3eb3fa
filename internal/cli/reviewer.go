package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/ha-outliers/internal/model"
	"github.com/Veraticus/ha-outliers/internal/report"
	"github.com/Veraticus/ha-outliers/internal/review"
)

const (
	clearScreen  = "\033[H\033[2J"
	commandHint  = "[n]ext, [p]rev, [e]dit #, [d]elete #, [q]uit"
	noneLeftText = "No outliers left to review!"
)

// Reviewer runs the line-oriented review loop.
type Reviewer struct {
	ctrl   *review.Controller
	prompt *Prompter
	logger *slog.Logger
	now    func() time.Time
	status string
	width  int
	clear  bool
}

// ReviewerOption configures a Reviewer.
type ReviewerOption func(*Reviewer)

// WithClearScreen clears the terminal before each page. Only useful on a TTY.
func WithClearScreen(clear bool) ReviewerOption {
	return func(r *Reviewer) {
		r.clear = clear
	}
}

// WithTableWidth caps the rendered table width.
func WithTableWidth(width int) ReviewerOption {
	return func(r *Reviewer) {
		r.width = width
	}
}

// WithReviewerLogger sets the reviewer's logger.
func WithReviewerLogger(logger *slog.Logger) ReviewerOption {
	return func(r *Reviewer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReviewer creates a reviewer over ctrl that talks through prompt.
func NewReviewer(ctrl *review.Controller, prompt *Prompter, opts ...ReviewerOption) *Reviewer {
	r := &Reviewer{
		ctrl:   ctrl,
		prompt: prompt,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run shows pages and handles commands until the operator quits, every group
// is corrected, input ends, or ctx is canceled. Cancellation is reported as
// ctx.Err(); a mutation already in flight always completes first.
func (r *Reviewer) Run(ctx context.Context) error {
	session := r.ctrl.Session()
	for {
		if session.State() == review.StateQuit {
			return nil
		}
		if session.Done() {
			r.prompt.Println(FormatSuccess(noneLeftText))
			return nil
		}

		r.render()

		line, err := r.prompt.Line(ctx, commandHint)
		if err != nil {
			return r.inputError(ctx, err)
		}

		cmd, err := review.ParseCommand(line)
		if err != nil {
			r.status = FormatError("Invalid format. Use: e5 or d5")
			continue
		}

		sel, err := session.Handle(cmd)
		if err != nil {
			r.status = FormatError(invalidText(err))
			continue
		}
		r.status = ""

		if session.State() != review.StateSelecting {
			continue
		}

		switch sel.Action {
		case review.ActionEdit:
			err = r.edit(ctx, sel)
		case review.ActionDelete:
			err = r.delete(ctx, sel)
		}
		if err != nil {
			if session.State() == review.StateSelecting {
				_ = session.Cancel()
			}
			return r.inputError(ctx, err)
		}
	}
}

func (r *Reviewer) inputError(ctx context.Context, err error) error {
	if errors.Is(err, ErrInputClosed) {
		r.ctrl.Session().Quit()
		return nil
	}
	if errors.Is(err, ErrInputCancelled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func invalidText(err error) string {
	switch {
	case errors.Is(err, review.ErrInvalidSelection):
		return "Invalid or already removed."
	default:
		return err.Error()
	}
}

func (r *Reviewer) render() {
	session := r.ctrl.Session()
	var b strings.Builder
	if r.clear {
		b.WriteString(clearScreen)
	}

	b.WriteString(BoldStyle.Render(report.FormatSummary(session.ActiveRecords(), session.ActiveGroups())))
	b.WriteString("\n\n")

	rows := session.Visible()
	groups := make([]model.Group, len(rows))
	for i, row := range rows {
		groups[i] = row.Group
	}
	first := 1
	if len(rows) > 0 {
		first = rows[0].Number
	}
	b.WriteString(report.RenderGroups(groups, report.TableOptions{FirstNumber: first, Width: r.width}))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Page %d/%d", session.Page()+1, session.TotalPages()))
	if r.status != "" {
		b.WriteString("\n")
		b.WriteString(r.status)
	}

	r.prompt.Println(b.String())
}

func (r *Reviewer) details(g *model.Group) string {
	latest := g.LatestTimestamp()
	lines := []string{
		fmt.Sprintf("Value:     %s", report.FormatValueRange(g)),
		fmt.Sprintf("Mean:      %s", report.FormatNumber(g.Mean)),
		fmt.Sprintf("Range:     %s … %s", report.FormatNumber(g.LowerBound), report.FormatNumber(g.UpperBound)),
		fmt.Sprintf("Deviation: %s %s", report.FormatDeviation(g.Deviation), g.Key.Direction),
		fmt.Sprintf("Records:   %s", report.FormatCount(g)),
		fmt.Sprintf("Latest:    %s (%s)", report.FormatTimestamp(latest), report.FormatAge(latest, r.now())),
	}
	return strings.Join(lines, "\n")
}

func (r *Reviewer) edit(ctx context.Context, sel review.Selection) error {
	g := sel.Group
	r.prompt.Println(RenderBox(fmt.Sprintf("Edit #%d %s", sel.Number(), g.EntityID), r.details(&g)))

	prompt := fmt.Sprintf("New value ([m]ean = %s, [c]ancel)", report.FormatNumber(g.Mean))
	for {
		answer, err := r.prompt.Line(ctx, prompt)
		if err != nil {
			return err
		}
		choice, err := review.ParseEditChoice(answer, g.Mean)
		if err != nil {
			r.prompt.Errorf("Invalid number.")
			continue
		}
		if choice.Cancel {
			r.status = FormatInfo("Edit cancelled.")
			return r.ctrl.Session().Cancel()
		}
		r.report(r.ctrl.Apply(ctx, choice.Value))
		return nil
	}
}

func (r *Reviewer) delete(ctx context.Context, sel review.Selection) error {
	g := sel.Group
	r.prompt.Println(RenderBox(fmt.Sprintf("Delete #%d %s", sel.Number(), g.EntityID), r.details(&g)))

	ok, err := r.prompt.Confirm(ctx, fmt.Sprintf("Delete %d record(s)?", g.Count()))
	if err != nil {
		return err
	}
	if !ok {
		r.status = FormatInfo("Delete cancelled.")
		return r.ctrl.Session().Cancel()
	}
	r.report(r.ctrl.Apply(ctx, 0))
	return nil
}

func (r *Reviewer) report(out review.Outcome) {
	verb := "Updated"
	if out.Selection.Action == review.ActionDelete {
		verb = "Deleted"
	}

	switch {
	case out.Committed():
		r.status = FormatSuccess(fmt.Sprintf("%s %d record(s) of %s", verb, out.Affected, out.Selection.Group.EntityID))
	case out.Reconnected:
		r.status = FormatWarning("Connection lost and re-established. Nothing was changed; retry the command.")
	default:
		r.logger.Error("Mutation failed", "entity_id", out.Selection.Group.EntityID, "error", out.Err)
		r.status = FormatError(fmt.Sprintf("Error: %v", out.Err))
	}
}
