// Package cli contains utilities for CLI output.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// FormatDuration renders d as "12.3s", "4m 5.6s" or "1h 2m".
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()

	switch {
	case seconds < 60:
		return fmt.Sprintf("%.1fs", seconds)
	case seconds < 3600:
		minutes := int(seconds / 60)
		return fmt.Sprintf("%dm %.1fs", minutes, seconds-float64(minutes*60))
	default:
		hours := int(seconds / 3600)
		minutes := int((seconds - float64(hours*3600)) / 60)
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
}

// Truncate shortens text to at most max runes, ending with "..." when cut.
func Truncate(text string, max int) string {
	const suffix = "..."

	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max <= len(suffix) {
		return string(runes[:max])
	}

	return string(runes[:max-len(suffix)]) + suffix
}

// TerminalWidth returns the width advertised by $COLUMNS, or 80.
func TerminalWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}

	return 80
}

// Rule returns a horizontal separator of the given width.
func Rule(width int) string {
	if width <= 0 {
		return ""
	}

	return strings.Repeat("-", width)
}
