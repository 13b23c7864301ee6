package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/cvanbaush/news-summaries/internal/article"
)

func TestAssemble(t *testing.T) {
	c := article.Collection{
		article.World: {
			{Title: "1", URL: "https://x/1"},
			{Title: "2", URL: "https://x/2"},
			{Title: "3", URL: "https://x/3"},
		},
	}
	now := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)

	d := Assemble(c, 2, "hi", now)
	if !d.GeneratedAt.Equal(now) || d.Intro != "hi" {
		t.Errorf("unexpected digest header: %+v", d)
	}
	if len(d.Articles[article.World]) != 2 {
		t.Errorf("expected cap of 2, got %d", len(d.Articles[article.World]))
	}
	for _, cat := range article.Priority {
		if d.Articles[cat] == nil {
			t.Errorf("category %s missing from digest", cat)
		}
	}
	if len(c[article.World]) != 3 {
		t.Error("input collection must not be modified")
	}

	if got := Assemble(c, 0, "", now).TotalArticles(); got != 3 {
		t.Errorf("expected no cap with 0, got %d articles", got)
	}
}

func TestMarkdown(t *testing.T) {
	d := &article.Digest{
		GeneratedAt: time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC),
		Intro:       "Here is today's news.",
		Articles: article.Collection{
			article.World: {
				{Title: "Storm hits coast", Source: "BBC", URL: "https://bbc.com/storm", Summary: "A storm."},
			},
			article.National: {},
			article.Local: {
				{Title: "Bridge closed", Source: "SFGate", URL: "https://sfgate.com/bridge"},
			},
		},
	}

	want := strings.Join([]string{
		"# News Digest",
		"*Generated: March 05, 2024 at 02:07 PM*",
		"",
		"Here is today's news.",
		"",
		"---",
		"",
		"## World News",
		"",
		"### Storm hits coast",
		"*BBC*",
		"",
		"A storm.",
		"",
		"[Read more](https://bbc.com/storm)",
		"",
		"## Local News",
		"",
		"### Bridge closed",
		"*SFGate*",
		"",
		"",
		"[Read more](https://sfgate.com/bridge)",
		"",
	}, "\n")

	if got := Markdown(d); got != want {
		t.Errorf("Markdown mismatch\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestMarkdownEmptyDigest(t *testing.T) {
	d := &article.Digest{
		GeneratedAt: time.Date(2024, 1, 2, 9, 5, 0, 0, time.UTC),
		Articles:    article.NewCollection(),
	}
	want := "# News Digest\n*Generated: January 02, 2024 at 09:05 AM*\n\n---\n"
	if got := Markdown(d); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMarkdownStampsUTC(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	d := &article.Digest{
		GeneratedAt: time.Date(2024, 1, 2, 4, 5, 0, 0, est),
		Articles:    article.NewCollection(),
	}
	want := "*Generated: January 02, 2024 at 09:05 AM*"
	if got := Markdown(d); !strings.Contains(got, want) {
		t.Errorf("expected %q in:\n%s", want, got)
	}
}

func TestGreeting(t *testing.T) {
	tests := []struct {
		hour     int
		expected string
	}{
		{8, "Good morning"},
		{0, "Good morning"},
		{12, "Good afternoon"},
		{16, "Good afternoon"},
		{17, "Good evening"},
	}
	for _, tt := range tests {
		now := time.Date(2026, 1, 1, tt.hour, 0, 0, 0, time.Local)
		if got := greeting(now); got != tt.expected {
			t.Errorf("hour %d: expected %q, got %q", tt.hour, tt.expected, got)
		}
	}
}

func TestActiveSources(t *testing.T) {
	got := activeSources([]string{"BBC", "BBC", "BBC", "NPR", "NPR", "AP", "Reuters"})
	if got != "BBC (3), NPR (2), AP (1)" {
		t.Errorf("unexpected active sources %q", got)
	}
	if activeSources(nil) != "" {
		t.Error("expected empty string for no sources")
	}
}

func TestTrending(t *testing.T) {
	titles := []string{
		"Election results delayed in Ohio",
		"Ohio election turnout record",
		"Storm warning issued",
	}
	got := trending(titles, nil)
	if got != "election, ohio" {
		t.Errorf("unexpected trending %q", got)
	}
}

func TestNewOverview(t *testing.T) {
	d := &article.Digest{Articles: article.Collection{
		article.World:    {{Title: "A", Source: "BBC"}},
		article.National: {{Title: "B", Source: "BBC"}, {Title: "C", Source: "NPR"}},
	}}
	o := NewOverview(d, nil, time.Date(2026, 1, 1, 9, 0, 0, 0, time.Local))
	if o.Total != 3 || o.Greeting != "Good morning" || o.ActiveSources != "BBC (2), NPR (1)" {
		t.Errorf("unexpected overview %+v", o)
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("The first sentence is long enough. Second one."); got != "The first sentence is long enough." {
		t.Errorf("unexpected excerpt %q", got)
	}
	long := strings.Repeat("word ", 50)
	if got := Excerpt(long); !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncated excerpt, got %q", got)
	}
	if Excerpt("") != "" {
		t.Error("expected empty excerpt")
	}
}

func TestReadingTime(t *testing.T) {
	if ReadingTime("") != 1 {
		t.Error("expected minimum of 1 minute")
	}
	if got := ReadingTime(strings.Repeat("word ", 200)); got != 3 {
		t.Errorf("expected 3 minutes, got %d", got)
	}
}
