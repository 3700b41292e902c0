// Package cli provides the user-facing output helpers shared by comfyctl
// commands: step announcements, progress spinners, secret masking, and the
// status tables.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Printer writes user-facing progress output. In quiet mode everything but
// errors is suppressed; structured logs are not affected.
type Printer struct {
	out   io.Writer
	quiet bool
	s     *spinner.Spinner
}

// NewPrinter creates a printer writing to stdout.
func NewPrinter(quiet bool) *Printer {
	return &Printer{out: os.Stdout, quiet: quiet}
}

// NewPrinterTo creates a printer writing to the given writer.
func NewPrinterTo(out io.Writer, quiet bool) *Printer {
	return &Printer{out: out, quiet: quiet}
}

// Step announces a lifecycle step.
func (p *Printer) Step(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", text.FgHiCyan.Sprint("==>"), fmt.Sprintf(format, args...))
}

// Info prints an indented detail line under the current step.
func (p *Printer) Info(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "    %s\n", fmt.Sprintf(format, args...))
}

// Success prints a green confirmation line.
func (p *Printer) Success(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", text.FgGreen.Sprint("✓"), fmt.Sprintf(format, args...))
}

// Warn prints a yellow warning line.
func (p *Printer) Warn(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", text.FgYellow.Sprint("!"), fmt.Sprintf(format, args...))
}

// Error prints a red failure line. Errors print even in quiet mode.
func (p *Printer) Error(format string, args ...interface{}) {
	fmt.Fprintf(p.out, "%s %s\n", text.FgRed.Sprint("✗"), fmt.Sprintf(format, args...))
}

// StartSpinner begins a progress spinner for a long-running operation.
// Calls are ignored in quiet mode or while a spinner is already running.
func (p *Printer) StartSpinner(suffix string) {
	if p.quiet || p.s != nil {
		return
	}
	p.s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	p.s.Suffix = " " + suffix
	p.s.Start()
}

// StopSpinner stops the running spinner, if any.
func (p *Printer) StopSpinner() {
	if p.s == nil {
		return
	}
	p.s.Stop()
	p.s = nil
}
