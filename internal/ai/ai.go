package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cvanbaush/news-summaries/internal/article"
	"github.com/cvanbaush/news-summaries/internal/config"
	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

// ErrNotConfigured is returned by New when no provider key is available.
var ErrNotConfigured = errors.New("AI not configured")

// Summarizer turns articles into short summaries.
type Summarizer interface {
	Summarize(ctx context.Context, a article.Article) (string, error)
	// Intro writes a one-sentence introduction for a digest of count articles.
	Intro(ctx context.Context, count int) (string, error)
}

const (
	summaryMaxTokens = 200
	introMaxTokens   = 100
	maxPromptContent = 4000
)

// DefaultModel returns the model used when the config leaves it empty.
func DefaultModel(provider string) string {
	switch provider {
	case "claude":
		return "claude-haiku-4-5-20251001"
	case "gemini":
		return "gemini-1.5-flash"
	default:
		return "gpt-4o-mini"
	}
}

// New creates a Summarizer from the given AI config.
func New(cfg *config.AIConfig, apiKey string) (Summarizer, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}

	provider, model := "openai", ""
	if cfg != nil {
		if cfg.Provider != "" {
			provider = cfg.Provider
		}
		model = cfg.Model
	}
	if model == "" {
		model = DefaultModel(provider)
	}

	switch provider {
	case "claude":
		return &claudeProvider{
			apiKey:   apiKey,
			model:    model,
			endpoint: claudeEndpoint,
			client:   &http.Client{Timeout: 30 * time.Second},
		}, nil
	case "openai":
		return newOpenAIProvider(apiKey, model, ""), nil
	case "gemini":
		client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
		if err != nil {
			return nil, fmt.Errorf("creating gemini client: %w", err)
		}
		return &geminiProvider{client: client, model: model}, nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %q (valid: openai, claude, gemini)", provider)
	}
}

const summarizePrompt = `Summarize this news article in 2-3 sentences. Focus on the key facts
and why it matters. Be concise and objective.

Title: %s
Source: %s
Content: %s`

const introPrompt = `Write a brief, one-sentence introduction for a news digest
containing %d articles covering world, national, and local news.
Keep it professional and neutral.`

func buildSummaryPrompt(a article.Article) string {
	content := strings.TrimSpace(a.Content)
	if content == "" {
		content = "No content available"
	}
	return fmt.Sprintf(summarizePrompt, a.Title, a.Source, truncate(content, maxPromptContent))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// --- Claude provider ---

const claudeEndpoint = "https://api.anthropic.com/v1/messages"

type claudeProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (c *claudeProvider) Summarize(ctx context.Context, a article.Article) (string, error) {
	return c.call(ctx, buildSummaryPrompt(a), summaryMaxTokens)
}

func (c *claudeProvider) Intro(ctx context.Context, count int) (string, error) {
	return c.call(ctx, fmt.Sprintf(introPrompt, count), introMaxTokens)
}

func (c *claudeProvider) call(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, _ := json.Marshal(claudeRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("claude API %d: %s", resp.StatusCode, string(b))
	}

	var cr claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding claude response: %w", err)
	}
	if len(cr.Content) == 0 {
		return "", fmt.Errorf("empty claude response")
	}
	return strings.TrimSpace(cr.Content[0].Text), nil
}

// --- OpenAI provider ---

type openaiProvider struct {
	client *openai.Client
	model  string
}

// newOpenAIProvider builds an OpenAI client; an empty baseURL uses the
// public API.
func newOpenAIProvider(apiKey, model, baseURL string) *openaiProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openaiProvider{client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *openaiProvider) Summarize(ctx context.Context, a article.Article) (string, error) {
	return o.call(ctx, buildSummaryPrompt(a), summaryMaxTokens)
}

func (o *openaiProvider) Intro(ctx context.Context, count int) (string, error) {
	return o.call(ctx, fmt.Sprintf(introPrompt, count), introMaxTokens)
}

func (o *openaiProvider) call(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty openai response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// --- Gemini provider ---

type geminiProvider struct {
	client *genai.Client
	model  string
}

func (g *geminiProvider) Summarize(ctx context.Context, a article.Article) (string, error) {
	return g.call(ctx, buildSummaryPrompt(a), summaryMaxTokens)
}

func (g *geminiProvider) Intro(ctx context.Context, count int) (string, error) {
	return g.call(ctx, fmt.Sprintf(introPrompt, count), introMaxTokens)
}

func (g *geminiProvider) Close() error {
	return g.client.Close()
}

func (g *geminiProvider) call(ctx context.Context, prompt string, maxTokens int) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetMaxOutputTokens(int32(maxTokens))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	return geminiText(resp)
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty gemini response")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty gemini response")
	}
	return strings.TrimSpace(sb.String()), nil
}
