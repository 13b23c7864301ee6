package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func renderStatusBar(articleCount int, tabLabel, query string, width int, searching bool, loading bool) string {
	left := fmt.Sprintf(" %d articles", articleCount)
	if tabLabel != "All" {
		left += " · " + tabLabel
	}
	if query != "" && !searching {
		left += fmt.Sprintf(" · %q", query)
	}
	if loading {
		left += " (building digest...)"
	}

	right := " 1-4 section  / search  r rebuild  ? help  q quit "
	if searching {
		right = " esc cancel  enter search "
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}

func renderBottomBar(hints string, width int) string {
	right := " " + hints + " "
	gap := width - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return statusBarStyle.Width(width).Render(fmt.Sprintf("%*s", gap, "") + right)
}
