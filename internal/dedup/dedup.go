// Package dedup collapses duplicate articles across prioritized categories.
package dedup

import (
	"net/url"
	"strings"

	"github.com/cvanbaush/news-summaries/internal/article"
)

// NormalizeURL reduces a URL to lower-cased host and path, dropping scheme,
// query, fragment and any trailing slash. Input url.Parse rejects, such as a
// stray '%', is cut the same way by hand.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return roughURLKey(raw)
	}
	return strings.ToLower(strings.TrimRight(u.Host+u.EscapedPath(), "/"))
}

func roughURLKey(raw string) string {
	s := raw
	if i := strings.Index(s, "://"); i > 0 && isScheme(s[:i]) {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(strings.TrimRight(s, "/"))
}

func isScheme(s string) bool {
	for i, r := range s {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case i > 0 && ('0' <= r && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// NormalizeTitle strips a trailing " - Source" suffix, then a trailing
// " | Source" suffix from what remains, and lower-cases the result.
// Each rule cuts at the last occurrence of its separator.
func NormalizeTitle(title string) string {
	if i := strings.LastIndex(title, " - "); i >= 0 {
		title = title[:i]
	}
	if i := strings.LastIndex(title, " | "); i >= 0 {
		title = title[:i]
	}
	return strings.ToLower(strings.TrimSpace(title))
}

// Report counts what a deduplication pass dropped.
type Report struct {
	Input   int
	Kept    int
	ByURL   int
	ByTitle int
}

// Dropped returns the number of discarded articles.
func (r Report) Dropped() int {
	return r.ByURL + r.ByTitle
}

// Deduplicate keeps the first occurrence of every normalized URL and
// normalized title, scanning categories in article.Priority order and
// articles in their original order. A URL match is checked before a title
// match; either one discards the article.
func Deduplicate(in article.Collection) article.Collection {
	out, _ := DeduplicateWithReport(in)
	return out
}

// DeduplicateWithReport is Deduplicate plus drop counts.
func DeduplicateWithReport(in article.Collection) (article.Collection, Report) {
	var (
		seenURLs   = map[string]struct{}{}
		seenTitles = map[string]struct{}{}
		out        = article.NewCollection()
		r          Report
	)

	for _, cat := range article.Priority {
		for _, a := range in[cat] {
			r.Input++
			u := NormalizeURL(a.URL)
			t := NormalizeTitle(a.Title)

			if _, dup := seenURLs[u]; dup {
				r.ByURL++
				continue
			}
			if _, dup := seenTitles[t]; dup {
				r.ByTitle++
				continue
			}

			seenURLs[u] = struct{}{}
			seenTitles[t] = struct{}{}
			out[cat] = append(out[cat], a)
			r.Kept++
		}
	}
	return out, r
}
