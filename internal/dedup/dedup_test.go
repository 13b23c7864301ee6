package dedup

import (
	"reflect"
	"testing"

	"github.com/cvanbaush/news-summaries/internal/article"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://example.com/story?utm_source=x", "example.com/story"},
		{"https://example.com/story/", "example.com/story"},
		{"http://Example.COM/Story#comments", "example.com/story"},
		{"https://example.com/", "example.com"},
		{"https://example.com", "example.com"},
		{"https://example.com:8443/a/b/", "example.com:8443/a/b"},
		{"https://user:pw@example.com/a", "example.com/a"},
		{"https://example.com/a%20b", "example.com/a%20b"},
	}
	for _, tt := range tests {
		if got := NormalizeURL(tt.input); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeURLUnparseable(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://Example.com/100%", "example.com/100%"},
		{"https://example.com/100%?utm_source=x", "example.com/100%"},
		{"https://example.com/100%/#top", "example.com/100%"},
		{"://Not A URL", "://not a url"},
	}
	for _, tt := range tests {
		if got := NormalizeURL(tt.input); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDeduplicateUnparseableURLs(t *testing.T) {
	in := article.Collection{
		article.World: {
			art(article.World, "https://example.com/100%", "Prices up 100%"),
			art(article.World, "https://example.com/100%?utm=x", "Prices doubled overnight"),
		},
	}
	got, r := DeduplicateWithReport(in)
	if len(got[article.World]) != 1 || r.ByURL != 1 {
		t.Errorf("expected URL duplicate dropped, kept %d (report %+v)", len(got[article.World]), r)
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Markets rally - Reuters", "markets rally"},
		{"Markets Rally - Bloomberg", "markets rally"},
		{"Plain headline", "plain headline"},
		{"  Padded headline  ", "padded headline"},
		{"Storm hits coast | CNN", "storm hits coast"},
		{"Foo - Bar - Baz", "foo - bar"},
		{"A | B | C", "a | b"},
		// dash rule runs first, then the pipe rule on what is left
		{"A - B | C", "a"},
		{"A | B - C", "a"},
		{"A|B-C", "a|b-c"},
		{"Well-known - Site", "well-known"},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.input); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func art(cat article.Category, url, title string) article.Article {
	return article.Article{Title: title, URL: url, Source: "test", Category: cat}
}

func TestDeduplicateScenario(t *testing.T) {
	a := art(article.World, "https://u1.com/x", "Foo - X")
	b := art(article.World, "https://u2.com/y", "Bar")
	c := art(article.National, "https://u1.com/x", "Foo - Y")
	d := art(article.Local, "https://u3.com/z", "foo - x")

	in := article.Collection{
		article.World:    {a, b},
		article.National: {c},
		article.Local:    {d},
	}
	got, r := DeduplicateWithReport(in)

	want := article.Collection{
		article.World:    {a, b},
		article.National: {},
		article.Local:    {},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected result:\n got  %+v\n want %+v", got, want)
	}
	if r.Input != 4 || r.Kept != 2 || r.ByURL != 1 || r.ByTitle != 1 {
		t.Errorf("unexpected report: %+v", r)
	}
	if r.Dropped() != 2 {
		t.Errorf("expected 2 dropped, got %d", r.Dropped())
	}
}

func TestDeduplicatePriority(t *testing.T) {
	national := art(article.National, "https://example.com/story", "National copy")
	world := art(article.World, "https://example.com/story/?ref=rss", "World copy")

	// NATIONAL is inserted first; priority, not insertion, decides.
	in := article.Collection{}
	in[article.National] = []article.Article{national}
	in[article.World] = []article.Article{world}

	got := Deduplicate(in)
	if len(got[article.World]) != 1 || got[article.World][0].Title != "World copy" {
		t.Errorf("expected WORLD article retained, got %+v", got[article.World])
	}
	if len(got[article.National]) != 0 {
		t.Errorf("expected NATIONAL duplicate dropped, got %+v", got[article.National])
	}
}

func TestDeduplicateTitleOnlyMatch(t *testing.T) {
	in := article.Collection{
		article.World: {
			art(article.World, "https://reuters.com/markets", "Markets rally - Reuters"),
			art(article.World, "https://bloomberg.com/markets", "Markets Rally - Bloomberg"),
		},
	}
	got := Deduplicate(in)
	if len(got[article.World]) != 1 {
		t.Fatalf("expected title duplicate dropped, got %d articles", len(got[article.World]))
	}
	if got[article.World][0].URL != "https://reuters.com/markets" {
		t.Errorf("expected first article kept, got %s", got[article.World][0].URL)
	}
}

func TestDeduplicateURLCheckedFirst(t *testing.T) {
	// The second article shares the first one's URL; it must not register its
	// own title, so a third article with that title survives.
	in := article.Collection{
		article.World: {
			art(article.World, "https://a.com/1", "First"),
			art(article.World, "https://a.com/1/", "Second"),
			art(article.World, "https://b.com/2", "Second"),
		},
	}
	got := Deduplicate(in)
	titles := []string{}
	for _, a := range got[article.World] {
		titles = append(titles, a.Title)
	}
	if !reflect.DeepEqual(titles, []string{"First", "Second"}) {
		t.Errorf("unexpected titles %v", titles)
	}
	if got[article.World][1].URL != "https://b.com/2" {
		t.Errorf("expected third article kept, got %s", got[article.World][1].URL)
	}
}

func TestDeduplicateOrderPreserved(t *testing.T) {
	in := article.Collection{
		article.Local: {
			art(article.Local, "https://x.com/3", "Three"),
			art(article.Local, "https://x.com/1", "One"),
			art(article.Local, "https://x.com/3?dup", "Three again"),
			art(article.Local, "https://x.com/2", "Two"),
		},
	}
	got := Deduplicate(in)
	var order []string
	for _, a := range got[article.Local] {
		order = append(order, a.Title)
	}
	if !reflect.DeepEqual(order, []string{"Three", "One", "Two"}) {
		t.Errorf("order not preserved: %v", order)
	}
}

func sampleCollection() article.Collection {
	return article.Collection{
		article.World: {
			art(article.World, "https://a.com/1", "Alpha - Wire"),
			art(article.World, "https://a.com/2", "Beta"),
			art(article.World, "https://a.com/1?x=1", "Gamma"),
		},
		article.National: {
			art(article.National, "https://b.com/1", "alpha | Daily"),
			art(article.National, "https://b.com/2", "Delta"),
		},
		article.Local: {
			art(article.Local, "https://c.com/1", "Epsilon"),
			art(article.Local, "https://A.com/2/", "Zeta"),
			art(article.Local, "https://c.com/3", "DELTA"),
		},
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	once := Deduplicate(sampleCollection())
	twice := Deduplicate(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("not idempotent:\n once  %+v\n twice %+v", once, twice)
	}
}

func TestDeduplicateCrossCategoryUniqueness(t *testing.T) {
	in := sampleCollection()
	got := Deduplicate(in)

	urls := map[string]bool{}
	titles := map[string]bool{}
	for _, cat := range article.Priority {
		for _, a := range got[cat] {
			u, ti := NormalizeURL(a.URL), NormalizeTitle(a.Title)
			if urls[u] {
				t.Errorf("duplicate normalized URL %q survived", u)
			}
			if titles[ti] {
				t.Errorf("duplicate normalized title %q survived", ti)
			}
			urls[u], titles[ti] = true, true
		}
	}
	if got.Total() > in.Total() {
		t.Errorf("output grew: %d > %d", got.Total(), in.Total())
	}
	if got.Total() != 4 {
		t.Errorf("expected 4 unique articles, got %d", got.Total())
	}
}

func TestDeduplicateEmptyInput(t *testing.T) {
	got := Deduplicate(nil)
	for _, cat := range article.Priority {
		arts, ok := got[cat]
		if !ok || len(arts) != 0 {
			t.Errorf("expected empty %q key, got %v (present=%t)", cat, arts, ok)
		}
	}
}

func TestDeduplicateDoesNotShareState(t *testing.T) {
	in := article.Collection{article.World: {art(article.World, "https://a.com/1", "Same")}}
	first := Deduplicate(in)
	second := Deduplicate(in)
	if len(first[article.World]) != 1 || len(second[article.World]) != 1 {
		t.Error("seen sets must be scoped to a single call")
	}
}
