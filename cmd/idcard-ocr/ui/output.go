// Package ui provides terminal output helpers for the idcard-ocr CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Printer writes status lines and boxes. Color is controlled globally via
// color.NoColor.
type Printer struct {
	out io.Writer
	err io.Writer
}

// NewPrinter creates a printer on stdout/stderr.
func NewPrinter() *Printer {
	return &Printer{out: color.Output, err: color.Error}
}

// NewPrinterTo creates a printer writing to the given streams.
func NewPrinterTo(out, errOut io.Writer) *Printer {
	return &Printer{out: out, err: errOut}
}

// Success prints a success line.
func (p *Printer) Success(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(p.out, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Error prints an error line to stderr.
func (p *Printer) Error(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(p.err, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Warning prints a warning line.
func (p *Printer) Warning(format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(p.out, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info prints an informational line.
func (p *Printer) Info(format string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(p.out, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Step prints a step line.
func (p *Printer) Step(format string, args ...interface{}) {
	color.New(color.FgBlue).Fprintf(p.out, "→ %s\n", fmt.Sprintf(format, args...))
}

// Field is one labeled row of a Box.
type Field struct {
	Label string
	Value string
}

// Box prints fields inside a bordered box.
func (p *Printer) Box(title string, fields []Field) {
	labelWidth := 0
	for _, f := range fields {
		if n := utf8.RuneCountInString(f.Label); n > labelWidth {
			labelWidth = n
		}
	}

	lines := make([]string, 0, len(fields))
	width := utf8.RuneCountInString(title)
	for _, f := range fields {
		line := fmt.Sprintf("%-*s  %s", labelWidth, f.Label, f.Value)
		lines = append(lines, line)
		if n := utf8.RuneCountInString(line); n > width {
			width = n
		}
	}
	if width < 40 {
		width = 40
	}

	bold := color.New(color.Bold)
	fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", width+2))
	if title != "" {
		fmt.Fprintf(p.out, "│ %s │\n", bold.Sprint(pad(title, width)))
		fmt.Fprintf(p.out, "├%s┤\n", strings.Repeat("─", width+2))
	}
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line, width))
	}
	fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", width+2))
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
