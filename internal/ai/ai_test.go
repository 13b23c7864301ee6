package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cvanbaush/news-summaries/internal/article"
	"github.com/cvanbaush/news-summaries/internal/config"
)

func TestNewNotConfigured(t *testing.T) {
	if _, err := New(&config.AIConfig{Provider: "openai"}, ""); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New(&config.AIConfig{Provider: "llama"}, "key"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewDefaultsToOpenAI(t *testing.T) {
	s, err := New(nil, "key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, ok := s.(*openaiProvider)
	if !ok {
		t.Fatalf("expected openai provider, got %T", s)
	}
	if p.model != "gpt-4o-mini" {
		t.Errorf("expected default model, got %q", p.model)
	}
}

func TestNewClaudeModel(t *testing.T) {
	s, err := New(&config.AIConfig{Provider: "claude"}, "key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p := s.(*claudeProvider); p.model != "claude-haiku-4-5-20251001" {
		t.Errorf("unexpected model %q", p.model)
	}
}

func TestDefaultModel(t *testing.T) {
	tests := map[string]string{
		"openai": "gpt-4o-mini",
		"claude": "claude-haiku-4-5-20251001",
		"gemini": "gemini-1.5-flash",
		"":       "gpt-4o-mini",
	}
	for provider, want := range tests {
		if got := DefaultModel(provider); got != want {
			t.Errorf("DefaultModel(%q) = %q, want %q", provider, got, want)
		}
	}
}

func TestBuildSummaryPrompt(t *testing.T) {
	p := buildSummaryPrompt(article.Article{Title: "Storm", Source: "BBC", Content: "Rain everywhere"})
	for _, want := range []string{"Title: Storm", "Source: BBC", "Content: Rain everywhere", "2-3 sentences"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}

	p = buildSummaryPrompt(article.Article{Title: "Empty"})
	if !strings.Contains(p, "Content: No content available") {
		t.Errorf("expected placeholder content, got:\n%s", p)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"short", 10, "short"},
		{"this is a long string", 10, "this is..."},
		{"abcd", 3, "abc"},
		{"こんにちは世界です", 5, "こん..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.input, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
		}
	}
}

func TestClaudeProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "key" || r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing auth headers")
		}
		var req claudeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.MaxTokens != introMaxTokens {
			t.Errorf("expected max_tokens %d, got %d", introMaxTokens, req.MaxTokens)
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"  Today's top stories.  "}]}`))
	}))
	defer srv.Close()

	c := &claudeProvider{apiKey: "key", model: "m", endpoint: srv.URL, client: srv.Client()}
	got, err := c.Intro(context.Background(), 7)
	if err != nil {
		t.Fatalf("Intro: %v", err)
	}
	if got != "Today's top stories." {
		t.Errorf("unexpected intro %q", got)
	}
}

func TestClaudeProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := &claudeProvider{apiKey: "key", model: "m", endpoint: srv.URL, client: srv.Client()}
	if _, err := c.Summarize(context.Background(), article.Article{Title: "x"}); err == nil {
		t.Error("expected error on 503")
	}
}

func TestOpenAIProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.MaxTokens != summaryMaxTokens || req.Model != "gpt-4o-mini" {
			t.Errorf("unexpected request %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"A short summary."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	o := newOpenAIProvider("key", "gpt-4o-mini", srv.URL+"/v1")
	got, err := o.Summarize(context.Background(), article.Article{Title: "t", Content: "c"})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "A short summary." {
		t.Errorf("unexpected summary %q", got)
	}
}

type fakeSummarizer struct {
	calls int32
	fail  string
}

func (f *fakeSummarizer) Summarize(ctx context.Context, a article.Article) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if a.Title == f.fail {
		return "", errors.New("provider down")
	}
	return "summary of " + a.Title, nil
}

func (f *fakeSummarizer) Intro(ctx context.Context, count int) (string, error) {
	return "intro", nil
}

func TestSummarizeCollection(t *testing.T) {
	in := article.NewCollection()
	in[article.World] = []article.Article{
		{Title: "A", URL: "https://a", Content: "aaa"},
		{Title: "B", URL: "https://b"},
		{Title: "C", URL: "https://c", Content: "ccc", Summary: "cached"},
	}
	in[article.Local] = []article.Article{
		{Title: "D", URL: "https://d", Content: "ddd"},
		{Title: "E", URL: "https://e", Content: "eee"},
	}

	f := &fakeSummarizer{fail: "E"}
	out, errs := SummarizeCollection(context.Background(), f, in, BatchOptions{Concurrency: 2})

	if len(errs) != 1 {
		t.Errorf("expected 1 error, got %v", errs)
	}
	if n := atomic.LoadInt32(&f.calls); n != 3 {
		t.Errorf("expected 3 provider calls, got %d", n)
	}

	world := out[article.World]
	if world[0].Summary != "summary of A" {
		t.Errorf("unexpected A summary %q", world[0].Summary)
	}
	if world[1].Summary != "" {
		t.Errorf("article without content must not be summarized, got %q", world[1].Summary)
	}
	if world[2].Summary != "cached" {
		t.Errorf("existing summary must be kept, got %q", world[2].Summary)
	}
	local := out[article.Local]
	if local[0].Summary != "summary of D" || local[1].Summary != "" {
		t.Errorf("unexpected local summaries: %q, %q", local[0].Summary, local[1].Summary)
	}

	if in[article.World][0].Summary != "" {
		t.Error("input collection must not be modified")
	}
}

func TestSummarizeCollectionCancelled(t *testing.T) {
	in := article.NewCollection()
	in[article.National] = []article.Article{{Title: "A", URL: "https://a", Content: "x"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeSummarizer{}
	out, errs := SummarizeCollection(ctx, f, in, BatchOptions{RequestsPerMinute: 1})
	if len(errs) != 1 {
		t.Errorf("expected cancellation error, got %v", errs)
	}
	if out[article.National][0].Summary != "" {
		t.Error("expected no summary after cancellation")
	}
}
