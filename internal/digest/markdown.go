package digest

import (
	"strings"

	"github.com/cvanbaush/news-summaries/internal/article"
)

const generatedLayout = "January 02, 2006 at 03:04 PM"

// Markdown renders d. Empty categories are omitted; the rest appear in
// priority order.
func Markdown(d *article.Digest) string {
	lines := []string{
		"# News Digest",
		"*Generated: " + d.GeneratedAt.UTC().Format(generatedLayout) + "*",
		"",
	}

	if d.Intro != "" {
		lines = append(lines, d.Intro, "")
	}

	lines = append(lines, "---", "")

	for _, cat := range article.Priority {
		arts := d.Articles[cat]
		if len(arts) == 0 {
			continue
		}

		lines = append(lines, "## "+cat.Title(), "")

		for _, a := range arts {
			lines = append(lines, "### "+a.Title, "*"+a.Source+"*", "")
			if a.Summary != "" {
				lines = append(lines, a.Summary)
			}
			lines = append(lines, "", "[Read more]("+a.URL+")", "")
		}
	}

	return strings.Join(lines, "\n")
}
