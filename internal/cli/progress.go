package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
)

// ScanProgress shows scan progress as a terminal progress bar.
type ScanProgress struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
}

// NewScanProgress creates a progress bar writing to w.
func NewScanProgress(w io.Writer) *ScanProgress {
	return &ScanProgress{writer: w}
}

// Start sizes the bar for total sources.
func (p *ScanProgress) Start(total int) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Scanning sensors...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(p.writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

// Advance counts one finished source. Safe for concurrent use.
func (p *ScanProgress) Advance(_ string) {
	if p.bar == nil {
		return
	}
	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Finish completes the bar.
func (p *ScanProgress) Finish() {
	if p.bar == nil {
		return
	}
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}
