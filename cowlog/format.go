// =============================================================================
// format.go - Output Formatting
// =============================================================================
//
// Turns protocol results into terminal text. Colour is used only when
// stdout is a terminal and --plain is not set; every helper here writes the
// same words either way so scripts can parse the plain output.
//
// =============================================================================

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/Coweeta/datalogger-tools/loggerprotocol"
)

// maxShownDelta is the largest clock error shown as a number.
const maxShownDelta = 24 * time.Hour

// palette holds the colours used by the shell.
type palette struct {
	title     *color.Color
	highlight *color.Color
	active    *color.Color
	dim       *color.Color
	good      *color.Color
	warn      *color.Color
}

// newPalette returns the palette for w. Colour is off when plain is set or
// w is not a terminal.
func newPalette(w io.Writer, plain bool) palette {
	p := palette{
		title:     color.New(color.Bold),
		highlight: color.New(color.FgCyan),
		active:    color.New(color.FgGreen, color.Bold),
		dim:       color.New(color.Faint),
		good:      color.New(color.FgGreen),
		warn:      color.New(color.FgYellow, color.Bold),
	}

	enabled := false
	if f, ok := w.(*os.File); ok && !plain {
		enabled = isTerminal(f)
	}
	for _, c := range []*color.Color{p.title, p.highlight, p.active, p.dim, p.good, p.warn} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// formatSize returns n as a short human-readable size.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}

// writeFileList prints the card listing. Directories are dimmed and the
// file being logged to is marked.
func writeFileList(w io.Writer, colors palette, entries []loggerprotocol.FileEntry, active string) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No files on the card.")
		return
	}

	width := 0
	for _, e := range entries {
		width = max(width, len(e.Name))
	}

	var total int64
	for _, e := range entries {
		switch {
		case !e.IsFile():
			fmt.Fprintf(w, "  %s\n", colors.dim.Sprintf("%-*s  <dir>", width, e.Name))
		case e.Name == active:
			total += *e.Size
			fmt.Fprintf(w, "  %s\n", colors.active.Sprintf("%-*s  %10s  (active)", width, e.Name, formatSize(*e.Size)))
		default:
			total += *e.Size
			fmt.Fprintf(w, "  %-*s  %10s\n", width, e.Name, formatSize(*e.Size))
		}
	}
	fmt.Fprintf(w, "%d entries, %s\n", len(entries), formatSize(total))
}

// formatDelta describes the logger's clock error. Positive means the
// logger is ahead.
func formatDelta(d time.Duration) string {
	if d.Abs() > maxShownDelta {
		return "TOO BIG"
	}
	d = d.Round(time.Second)
	switch {
	case d > 0:
		return fmt.Sprintf("%s ahead", d)
	case d < 0:
		return fmt.Sprintf("%s behind", -d)
	default:
		return "in sync"
	}
}

// formatDelay formats d as h:mm:ss.
func formatDelay(d time.Duration) string {
	d = d.Round(time.Second)
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := int64(d / time.Hour)
	m := int64(d/time.Minute) % 60
	s := int64(d/time.Second) % 60
	return fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, s)
}

// formatNames joins event names, or returns "none".
func formatNames(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

// progressBar renders done/total as a bar that fits in width columns.
func progressBar(done, total int64, width int) string {
	pct := 100.0
	if total > 0 {
		pct = float64(done) * 100 / float64(total)
	}
	label := fmt.Sprintf(" %5.1f%%", pct)

	cells := width - len(label) - 2
	if cells < 10 {
		return strings.TrimSpace(label)
	}
	filled := cells
	if total > 0 {
		filled = min(int(int64(cells)*done/total), cells)
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", cells-filled) + "]" + label
}
