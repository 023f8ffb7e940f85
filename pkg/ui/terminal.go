package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	errs "imgfetch/pkg/errors"
	"imgfetch/pkg/fetch"
)

const (
	WelcomeTitle    = "Welcome to the Ubuntu Image Fetcher"
	WelcomeSubtitle = "A tool for mindfully collecting images from the web"
	PromptText      = "Please enter one or more image URLs:"
	NoInputMessage  = "No URL provided. Exiting respectfully."
	ClosingMessage  = "Connection strengthened. Community enriched."
)

// Printer writes the human-readable lines of a fetch run
type Printer struct {
	out    io.Writer
	styles styles
}

// NewPrinter creates a printer writing to out. Colors are only emitted when
// enabled and out is a terminal that supports them.
func NewPrinter(out io.Writer, color bool) *Printer {
	if out == nil {
		out = os.Stdout
	}
	r := lipgloss.NewRenderer(out)
	return &Printer{out: out, styles: newStyles(r, color)}
}

func (p *Printer) line(style lipgloss.Style, format string, args ...interface{}) {
	fmt.Fprintln(p.out, style.Render(fmt.Sprintf(format, args...)))
}

// Banner prints the welcome text
func (p *Printer) Banner() {
	p.line(p.styles.title, WelcomeTitle)
	p.line(p.styles.subtitle, WelcomeSubtitle)
	fmt.Fprintln(p.out)
}

// Prompt asks for URLs
func (p *Printer) Prompt() {
	fmt.Fprintln(p.out, PromptText)
	fmt.Fprint(p.out, "> ")
}

// NoInput reports an empty URL line
func (p *Printer) NoInput() {
	fmt.Fprintln(p.out, NoInputMessage)
}

// Closing prints the final line of a run
func (p *Printer) Closing() {
	fmt.Fprintln(p.out)
	p.line(p.styles.closing, ClosingMessage)
}

// Outcome prints the result lines for one attempt
func (p *Printer) Outcome(a *fetch.Attempt, maxBytes int64) {
	switch a.Outcome {
	case fetch.OutcomeStored:
		p.line(p.styles.success, "✓ Successfully fetched: %s", a.Filename())
		p.line(p.styles.success, "✓ Image saved to %s", a.Path)
	case fetch.OutcomeDuplicate:
		p.line(p.styles.duplicate, "• Duplicate skipped (already have %s): %s", a.Existing, a.URL)
	case fetch.OutcomeNotImage:
		if a.Stage == fetch.StageProbe {
			p.line(p.styles.failure, "✗ Skipped (not an image): %s", a.URL)
			return
		}
		ct := a.ContentType
		if ct == "" {
			ct = "?"
		}
		p.line(p.styles.failure, "✗ Not an image (Content-Type=%s): %s", ct, a.URL)
	case fetch.OutcomeTooLarge:
		if a.Stage == fetch.StageProbe {
			p.line(p.styles.failure, "✗ Skipped (too large: %.1f MB): %s", float64(a.DeclaredLength)/1024/1024, a.URL)
			return
		}
		p.line(p.styles.failure, "✗ Aborted (exceeded %d MB): %s", maxBytes/1024/1024, a.URL)
	default:
		if errs.IsTransport(a.Err) {
			p.line(p.styles.failure, "✗ Connection error: %v", a.Err)
			return
		}
		p.line(p.styles.failure, "✗ An error occurred: %v", a.Err)
	}
}

// Summary prints the per-run counters
func (p *Printer) Summary(stored, duplicates, skipped, failed int) {
	fmt.Fprintln(p.out)
	p.line(p.styles.label, "Fetched %d new, %d duplicate, %d skipped, %d failed", stored, duplicates, skipped, failed)
}

// Error prints an error message
func (p *Printer) Error(msg string, args ...interface{}) {
	if len(args) > 0 {
		p.line(p.styles.failure, "%s: %v", msg, args[0])
		return
	}
	p.line(p.styles.failure, "%s", msg)
}

// Success prints a success message
func (p *Printer) Success(msg string) {
	p.line(p.styles.success, "%s", msg)
}

// Info prints a label/value pair
func (p *Printer) Info(label, value string) {
	fmt.Fprintf(p.out, "%s: %s\n", p.styles.label.Render(label), p.styles.value.Render(value))
}

// Warning prints a warning message
func (p *Printer) Warning(msg string) {
	p.line(p.styles.duplicate, "%s", msg)
}
