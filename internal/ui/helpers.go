package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/muesli/reflow/ansi"
	rtruncate "github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

// wrapText reflows text into lines of at most width columns, collapsing
// runs of whitespace. Words longer than width are kept whole.
func wrapText(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	if width <= 0 {
		return text
	}
	return wordwrap.String(text, width)
}

// truncate shortens s to at most n columns, marking the cut with "..."
func truncate(s string, n int) string {
	switch {
	case n <= 0:
		return ""
	case ansi.PrintableRuneWidth(s) <= n:
		return s
	case n <= 3:
		return rtruncate.String(s, uint(n))
	}
	return rtruncate.StringWithTail(s, uint(n), "...")
}

// formatAge renders a duration the way the feed shows item ages
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

// formatSize renders a byte count with a binary unit
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGTPE"[exp])
}
