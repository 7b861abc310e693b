// Package ui provides terminal output for the lecturecast CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// UI writes human-readable output. In JSON mode every method is silent so stdout
// carries only the machine-readable result.
type UI struct {
	out      io.Writer
	errOut   io.Writer
	noColor  bool
	jsonMode bool
	verbose  bool
}

// New creates a UI writing to stdout and stderr.
func New(jsonMode, noColor, verbose bool) *UI {
	if noColor {
		color.NoColor = true
	}
	return &UI{
		out:      os.Stdout,
		errOut:   os.Stderr,
		noColor:  noColor,
		jsonMode: jsonMode,
		verbose:  verbose,
	}
}

// NewWithWriters creates a UI writing to the given writers without color.
func NewWithWriters(out, errOut io.Writer) *UI {
	return &UI{out: out, errOut: errOut, noColor: true}
}

// Out is the writer for primary output.
func (ui *UI) Out() io.Writer { return ui.out }

// JSON reports whether human-readable output is suppressed.
func (ui *UI) JSON() bool { return ui.jsonMode }

// Interactive reports whether progress animations should be drawn.
func (ui *UI) Interactive() bool {
	return !ui.jsonMode && ui.out == os.Stdout && IsTerminal()
}

func (ui *UI) line(w io.Writer, c color.Attribute, symbol, format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	msg := fmt.Sprintf("%s %s\n", symbol, fmt.Sprintf(format, args...))
	if ui.noColor {
		fmt.Fprint(w, msg)
		return
	}
	color.New(c).Fprint(w, msg)
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	ui.line(ui.out, color.FgGreen, "✓", format, args...)
}

// Error prints an error message to stderr.
func (ui *UI) Error(format string, args ...interface{}) {
	ui.line(ui.errOut, color.FgRed, "✗", format, args...)
}

// Warning prints a warning message.
func (ui *UI) Warning(format string, args ...interface{}) {
	ui.line(ui.out, color.FgYellow, "⚠", format, args...)
}

// Info prints an info message.
func (ui *UI) Info(format string, args ...interface{}) {
	ui.line(ui.out, color.FgCyan, "ℹ", format, args...)
}

// Step prints a step message.
func (ui *UI) Step(format string, args ...interface{}) {
	ui.line(ui.out, color.FgBlue, "→", format, args...)
}

// Debug prints only in verbose mode.
func (ui *UI) Debug(format string, args ...interface{}) {
	if ui.verbose {
		ui.line(ui.errOut, color.FgHiBlack, "·", format, args...)
	}
}

// Section prints a section header.
func (ui *UI) Section(title string) {
	if ui.jsonMode {
		return
	}
	header := fmt.Sprintf("━━━ %s ━━━", strings.ToUpper(title))
	fmt.Fprintln(ui.out)
	if ui.noColor {
		fmt.Fprintln(ui.out, header)
	} else {
		color.New(color.FgMagenta, color.Bold).Fprintln(ui.out, header)
	}
	fmt.Fprintln(ui.out)
}

// KeyValue prints a key-value pair.
func (ui *UI) KeyValue(key string, value interface{}) {
	if ui.jsonMode {
		return
	}
	if ui.noColor {
		fmt.Fprintf(ui.out, "  %s: %v\n", key, value)
		return
	}
	color.New(color.FgYellow).Fprintf(ui.out, "  %s: ", key)
	fmt.Fprintf(ui.out, "%v\n", value)
}

// Table prints a boxed table sized to its widest cells.
func (ui *UI) Table(headers []string, rows [][]string) {
	if ui.jsonMode || len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len([]rune(h))
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len([]rune(cell)) > widths[i] {
				widths[i] = len([]rune(cell))
			}
		}
	}

	border := func(left, mid, right string) {
		var sb strings.Builder
		sb.WriteString(left)
		for i, w := range widths {
			sb.WriteString(strings.Repeat("─", w+2))
			if i < len(widths)-1 {
				sb.WriteString(mid)
			}
		}
		sb.WriteString(right)
		if ui.noColor {
			fmt.Fprintln(ui.out, sb.String())
		} else {
			color.New(color.FgCyan).Fprintln(ui.out, sb.String())
		}
	}
	row := func(cells []string) {
		var sb strings.Builder
		sb.WriteString("│")
		for i, w := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			sb.WriteString(" " + cell + strings.Repeat(" ", w-len([]rune(cell))) + " │")
		}
		fmt.Fprintln(ui.out, sb.String())
	}

	border("┌", "┬", "┐")
	row(headers)
	border("├", "┼", "┤")
	for _, r := range rows {
		row(r)
	}
	border("└", "┴", "┘")
}

// Newline prints a newline.
func (ui *UI) Newline() {
	if !ui.jsonMode {
		fmt.Fprintln(ui.out)
	}
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

// FormatBytes formats bytes in a human-readable way.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// IsTerminal checks if stdout is a terminal.
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
