package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Progress shows a spinner while a long-running step is in progress.
// A disabled Progress does nothing.
type Progress struct {
	s *spinner.Spinner
	w io.Writer
}

// NewProgress creates a spinner writing to w. It is disabled when quiet.
func NewProgress(w io.Writer, message string, quiet bool) *Progress {
	if quiet {
		return &Progress{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	return &Progress{s: s, w: w}
}

// Start starts the spinner.
func (p *Progress) Start() {
	if p.s != nil {
		p.s.Start()
	}
}

// Succeed stops the spinner and leaves msg in its place.
func (p *Progress) Succeed(msg string) {
	p.stop(text.FgGreen.Sprint("✓ " + msg))
}

// Fail stops the spinner and leaves msg in its place.
func (p *Progress) Fail(msg string) {
	p.stop(text.FgRed.Sprint("✗ " + msg))
}

// Stop stops the spinner without a final message.
func (p *Progress) Stop() {
	p.stop("")
}

func (p *Progress) stop(final string) {
	if p.s == nil {
		return
	}
	// The spinner does not animate when w is not a terminal.
	if !p.s.Active() {
		if final != "" {
			fmt.Fprintln(p.w, final)
		}
		return
	}
	if final != "" {
		p.s.FinalMSG = final + "\n"
	}
	p.s.Stop()
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return text.FgGreen.Sprint("✓ " + msg)
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return text.FgYellow.Sprint("⚠ " + msg)
}

// FormatError formats an error message for CLI output
func FormatError(err error) string {
	return text.FgRed.Sprintf("Error: %v", err)
}
