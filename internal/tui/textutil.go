package tui

import (
	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "…"

// truncateEnd fits s into width terminal cells, ending in an ellipsis when
// cut. Wide runes count double.
func truncateEnd(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, ellipsis)
}

// truncateMiddle fits s into width cells keeping both ends, for hosts and
// category names whose tail matters.
func truncateMiddle(s string, width int) string {
	if width <= 0 {
		return ""
	}
	total := ansi.StringWidth(s)
	if total <= width {
		return s
	}
	if width == 1 {
		return ellipsis
	}

	keep := width - 1
	left := keep / 2
	right := keep - left
	head := ansi.Truncate(s, left, "")
	tail := ansi.TruncateLeft(s, total-right, "")
	return head + ellipsis + tail
}
