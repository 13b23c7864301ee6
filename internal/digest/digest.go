package digest

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/cvanbaush/news-summaries/internal/article"
)

// Assemble caps each category at maxPerCategory articles and wraps the result
// in a Digest. Every category key is present in the output, empty or not.
// maxPerCategory <= 0 keeps everything.
func Assemble(c article.Collection, maxPerCategory int, intro string, now time.Time) *article.Digest {
	return &article.Digest{
		GeneratedAt: now,
		Intro:       intro,
		Articles:    c.Limit(maxPerCategory),
	}
}

// Overview is the header shown above a digest in the browser.
type Overview struct {
	Greeting      string
	Total         int
	ActiveSources string
	Trending      string
}

// NewOverview summarizes d. history is the set of previously seen titles used
// to weight trending terms; it may be empty.
func NewOverview(d *article.Digest, history []string, now time.Time) Overview {
	var titles, sources []string
	for _, cat := range article.Priority {
		for _, a := range d.Articles[cat] {
			titles = append(titles, a.Title)
			sources = append(sources, a.Source)
		}
	}
	return Overview{
		Greeting:      greeting(now),
		Total:         len(titles),
		ActiveSources: activeSources(sources),
		Trending:      trending(titles, history),
	}
}

// Excerpt returns the first sentence of text, for articles without a summary.
func Excerpt(text string) string {
	if text == "" {
		return ""
	}
	for i, c := range text {
		if c == '.' && i > 20 {
			return text[:i+1]
		}
	}
	runes := []rune(text)
	if len(runes) > 150 {
		return string(runes[:150]) + "..."
	}
	return text
}

// ReadingTime estimates minutes to read the full story behind a teaser.
func ReadingTime(text string) int {
	words := len(strings.Fields(text))
	minutes := (words * 3) / 200
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

func greeting(now time.Time) string {
	hour := now.Hour()
	switch {
	case hour < 12:
		return "Good morning"
	case hour < 17:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

func activeSources(sources []string) string {
	counts := map[string]int{}
	for _, s := range sources {
		counts[s]++
	}

	type sc struct {
		name  string
		count int
	}
	var sorted []sc
	for name, count := range counts {
		sorted = append(sorted, sc{name, count})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].name < sorted[j].name
	})

	limit := 3
	if len(sorted) < limit {
		limit = len(sorted)
	}

	parts := make([]string, limit)
	for i := 0; i < limit; i++ {
		parts[i] = fmt.Sprintf("%s (%d)", sorted[i].name, sorted[i].count)
	}
	return strings.Join(parts, ", ")
}

// trending extracts the top keywords of titles using TF-IDF against history.
func trending(titles, history []string) string {
	df := map[string]int{}
	for _, h := range history {
		seen := map[string]bool{}
		for _, w := range tokenize(h) {
			if !seen[w] {
				df[w]++
				seen[w] = true
			}
		}
	}

	tf := map[string]int{}
	for _, t := range titles {
		for _, w := range tokenize(t) {
			tf[w]++
		}
	}

	totalDocs := len(history)
	if totalDocs == 0 {
		totalDocs = 1
	}

	type scored struct {
		term  string
		score float64
	}
	var terms []scored
	for term, freq := range tf {
		if freq < 2 {
			continue
		}
		docFreq := df[term]
		if docFreq == 0 {
			docFreq = 1
		}
		// +1 keeps terms scoring when history is empty.
		idf := math.Log(float64(totalDocs)/float64(docFreq)) + 1
		terms = append(terms, scored{term, float64(freq) * idf})
	}

	sort.Slice(terms, func(i, j int) bool {
		if terms[i].score != terms[j].score {
			return terms[i].score > terms[j].score
		}
		return terms[i].term < terms[j].term
	})

	limit := 3
	if len(terms) < limit {
		limit = len(terms)
	}

	parts := make([]string, limit)
	for i := 0; i < limit; i++ {
		parts[i] = terms[i].term
	}
	return strings.Join(parts, ", ")
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "is": true, "it": true, "its": true,
	"this": true, "that": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "have": true, "has": true, "had": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "can": true, "not": true,
	"what": true, "when": true, "where": true, "who": true, "which": true, "why": true,
	"more": true, "most": true, "other": true, "some": true, "than": true, "just": true,
	"about": true, "into": true, "over": true, "after": true, "before": true,
	"says": true, "said": true, "amid": true, "year": true, "news": true, "live": true,
	"they": true, "their": true, "them": true, "your": true, "new": true,
}

func tokenize(s string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(word) < 4 {
			continue
		}
		if stopWords[word] {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}
