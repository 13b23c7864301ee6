package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cvanbaush/news-summaries/internal/article"
	"github.com/cvanbaush/news-summaries/internal/digest"
)

func renderPreview(a *article.Article, width, height, scroll int) string {
	if a == nil {
		return lipglossCenter("Select an article", width, height)
	}

	contentWidth := width - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	title := previewTitleStyle.Width(contentWidth).Render(a.Title)

	meta := a.Source + " · " + a.Category.Title()
	if a.Published != nil {
		meta += " · " + a.Published.Format("Jan 2, 2006")
	}
	meta += fmt.Sprintf(" · %d min read", digest.ReadingTime(a.Content))
	source := previewSourceStyle.Render(meta)

	var body string
	switch {
	case a.Summary != "":
		body = summaryLabelStyle.Render("Summary") + "\n" +
			previewBodyStyle.Width(contentWidth).Render(wrapText(a.Summary, contentWidth))
	case a.Content != "":
		body = previewBodyStyle.Width(contentWidth).Render(wrapText(digest.Excerpt(a.Content), contentWidth))
	default:
		body = previewBodyStyle.Render("(No description available)")
	}

	link := previewLinkStyle.Width(contentWidth).Render("Read more: " + a.URL)

	content := lipgloss.JoinVertical(lipgloss.Left, title, source, "", body, "", link)

	lines := strings.Split(content, "\n")
	if scroll > 0 && scroll < len(lines) {
		lines = lines[scroll:]
	}

	if len(lines) < height {
		lines = append(lines, make([]string, height-len(lines))...)
	} else if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len([]rune(line))+1+len([]rune(w)) > width {
			lines = append(lines, line)
			line = w
		} else {
			line += " " + w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}
