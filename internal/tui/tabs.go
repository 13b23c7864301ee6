package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/cvanbaush/news-summaries/internal/article"
)

// categoryTabs selects which section of the digest the list shows.
// Index 0 is "All"; the rest follow article.Priority.
type categoryTabs struct {
	active int
}

func (t *categoryTabs) count() int {
	return len(article.Priority) + 1
}

func (t *categoryTabs) next() {
	t.active = (t.active + 1) % t.count()
}

func (t *categoryTabs) prev() {
	t.active = (t.active - 1 + t.count()) % t.count()
}

func (t *categoryTabs) set(i int) {
	if i >= 0 && i < t.count() {
		t.active = i
	}
}

// category returns the selected category, or "" for All.
func (t *categoryTabs) category() article.Category {
	if t.active == 0 {
		return ""
	}
	return article.Priority[t.active-1]
}

func (t *categoryTabs) label() string {
	if c := t.category(); c != "" {
		return c.Title()
	}
	return "All"
}

func (t *categoryTabs) render(d *article.Digest, width int) string {
	sep := tabSeparatorStyle.Render(" · ")

	labels := []string{"All"}
	counts := []int{0}
	for _, cat := range article.Priority {
		labels = append(labels, cat.Title())
		n := 0
		if d != nil {
			n = len(d.Articles[cat])
		}
		counts = append(counts, n)
		counts[0] += n
	}

	var row string
	for i, l := range labels {
		style := tabInactiveStyle
		if i == t.active {
			style = tabActiveStyle
		}
		part := style.Render(fmt.Sprintf("%d %s (%d)", i+1, l, counts[i]))
		candidate := row
		if i > 0 {
			candidate += sep
		}
		candidate += part
		if lipgloss.Width(candidate) > width && row != "" {
			break
		}
		row = candidate
	}

	barStyle := lipgloss.NewStyle().
		Background(colorSurface).
		Width(width).
		PaddingLeft(1)
	return barStyle.Render(row)
}
