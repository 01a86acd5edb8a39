// Package output provides consistent CLI output formatting with colors on
// terminals and plain text everywhere else.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/gpsearch/internal/search"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out      io.Writer
	useColor bool
	styles   Styles
}

// New creates a Writer that colors output when out is a terminal and
// NO_COLOR is not set.
func New(out io.Writer) *Writer {
	return NewWithColor(out, IsTTY(out) && !DetectNoColor())
}

// NewWithColor creates a Writer with color forced on or off.
func NewWithColor(out io.Writer, color bool) *Writer {
	w := &Writer{out: out, useColor: color, styles: NoColorStyles()}
	if color {
		w.styles = DefaultStyles()
	}
	return w
}

// UseColor reports whether the writer styles its output.
func (w *Writer) UseColor() bool {
	return w.useColor
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", w.styles.Success.Render(msg))
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", w.styles.Warning.Render(msg))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", w.styles.Error.Render(msg))
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// KeyValue prints an aligned "label: value" line.
func (w *Writer) KeyValue(label string, value any) {
	_, _ = fmt.Fprintf(w.out, "  %s %v\n", w.styles.Label.Render(fmt.Sprintf("%-12s", label+":")), value)
}

// Code prints a block with indentation.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Result prints one numbered search hit: a title line, a metadata line and
// an optional snippet. Highlight markers in title and snippet are rendered.
func (w *Writer) Result(num int, title string, meta []string, snippet string) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n",
		w.styles.Dim.Render(fmt.Sprintf("%2d.", num)),
		w.styles.Title.Render(w.Highlight(title)))
	if len(meta) > 0 {
		sep := w.styles.Separator.Render(" · ")
		_, _ = fmt.Fprintf(w.out, "    %s\n", w.styles.Label.Render(strings.Join(meta, sep)))
	}
	if snippet != "" {
		_, _ = fmt.Fprintf(w.out, "    %s\n", w.Highlight(snippet))
	}
	_, _ = fmt.Fprintln(w.out)
}

// Highlight renders text wrapped in search highlight markers. With color the
// marked terms are styled; without color they are wrapped in asterisks.
// Unbalanced markers are left as they are.
func (w *Writer) Highlight(text string) string {
	var sb strings.Builder
	rest := text
	for {
		open := strings.Index(rest, search.HighlightOpen)
		if open < 0 {
			break
		}
		afterOpen := rest[open+len(search.HighlightOpen):]
		closeAt := strings.Index(afterOpen, search.HighlightClose)
		if closeAt < 0 {
			break
		}
		sb.WriteString(rest[:open])
		term := afterOpen[:closeAt]
		if w.useColor {
			sb.WriteString(w.styles.Mark.Render(term))
		} else {
			sb.WriteString("*" + term + "*")
		}
		rest = afterOpen[closeAt+len(search.HighlightClose):]
	}
	sb.WriteString(rest)
	return sb.String()
}

// Progress prints a progress bar with message.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 {
		return
	}

	pct := float64(current) / float64(total) * 100
	bar := renderProgressBar(current, total, 30)

	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", bar, pct, msg)
	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

// renderProgressBar creates a text progress bar.
func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}

	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
