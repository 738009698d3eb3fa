package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// ErrInputClosed is returned when the input stream ends while a prompt is waiting.
var ErrInputClosed = errors.New("input terminated")

// Prompter asks the operator questions on a line-oriented terminal.
type Prompter struct {
	writer     io.Writer
	reader     *NonBlockingReader
	readSecret func() (string, error)
}

// NewPrompter creates a prompter on the given reader and writer.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	return &Prompter{
		reader: NewNonBlockingReader(reader),
		writer: writer,
	}
}

// SetSecretReader installs a reader that does not echo, e.g. a terminal password read.
// Without one, secrets are read as plain lines.
func (p *Prompter) SetSecretReader(fn func() (string, error)) {
	p.readSecret = fn
}

// Writer returns the output stream.
func (p *Prompter) Writer() io.Writer {
	return p.writer
}

// Line prints prompt and reads one trimmed line.
func (p *Prompter) Line(ctx context.Context, prompt string) (string, error) {
	if _, err := fmt.Fprintf(p.writer, "%s ", FormatPrompt(prompt+":")); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	line, err := p.reader.ReadLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrInputClosed
		}
		return "", err
	}
	return line, nil
}

// Ask reads a value, returning def for empty input.
func (p *Prompter) Ask(ctx context.Context, label, def string) (string, error) {
	prompt := label
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]", label, def)
	}
	answer, err := p.Line(ctx, prompt)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// AskInt reads an integer in [lo, hi], asking again on invalid input.
func (p *Prompter) AskInt(ctx context.Context, label string, def, lo, hi int) (int, error) {
	for {
		answer, err := p.Ask(ctx, label, strconv.Itoa(def))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= lo && n <= hi {
			return n, nil
		}
		p.Errorf("Enter a number between %d and %d.", lo, hi)
	}
}

// AskChoice reads one of choices, returning def for empty input.
func (p *Prompter) AskChoice(ctx context.Context, label, def string, choices []string) (string, error) {
	for {
		answer, err := p.Ask(ctx, fmt.Sprintf("%s (%s)", label, strings.Join(choices, "/")), def)
		if err != nil {
			return "", err
		}
		answer = strings.ToLower(answer)
		for _, c := range choices {
			if answer == c {
				return c, nil
			}
		}
		p.Errorf("Invalid choice. Please try again.")
	}
}

// AskSecret reads a secret. The current value is shown masked and kept on empty input.
func (p *Prompter) AskSecret(ctx context.Context, label, current string) (string, error) {
	prompt := label
	if current != "" {
		prompt = fmt.Sprintf("%s [%s]", label, strings.Repeat("*", 8))
	}

	var answer string
	var err error
	if p.readSecret != nil {
		if _, werr := fmt.Fprintf(p.writer, "%s ", FormatPrompt(prompt+":")); werr != nil {
			return "", fmt.Errorf("failed to write prompt: %w", werr)
		}
		answer, err = p.readSecret()
		_, _ = fmt.Fprintln(p.writer)
	} else {
		answer, err = p.Line(ctx, prompt)
	}
	if err != nil {
		return "", err
	}
	if answer == "" {
		return current, nil
	}
	return answer, nil
}

// Confirm asks a yes/no question that defaults to no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := p.Line(ctx, question+" [y/N]")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Println writes a line, logging write failures.
func (p *Prompter) Println(text string) {
	if _, err := fmt.Fprintln(p.writer, text); err != nil {
		slog.Warn("Failed to write output", "error", err)
	}
}

// Errorf writes a formatted error line.
func (p *Prompter) Errorf(format string, args ...any) {
	p.Println(FormatError(fmt.Sprintf(format, args...)))
}
