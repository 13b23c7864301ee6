// Package newsapi fetches headlines from newsapi.org and converts them into
// articles.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cvanbaush/news-summaries/internal/article"
)

const DefaultBaseURL = "https://newsapi.org/v2"

// ErrMissingKey is returned by New when no API key is supplied.
var ErrMissingKey = errors.New("newsapi: API key is required")

// categoryMap maps digest categories onto NewsAPI categories.
var categoryMap = map[article.Category]string{
	article.World:    "general",
	article.National: "general",
	article.Local:    "general",
}

// APIError is a non-2xx response from NewsAPI.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("newsapi %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("newsapi %d: %s", e.Status, e.Message)
}

// Temporary reports whether retrying may succeed.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

type Client struct {
	apiKey     string
	baseURL    string
	client     *http.Client
	maxRetries uint64
	initial    time.Duration
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithRetry sets the retry budget and the first backoff interval.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initial = initial
	}
}

func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingKey
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		initial:    500 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type response struct {
	Status   string       `json:"status"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Articles []rawArticle `json:"articles"`
}

type rawArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// TopHeadlines fetches /top-headlines for a country.
func (c *Client) TopHeadlines(ctx context.Context, cat article.Category, country string, pageSize int) ([]article.Article, error) {
	q := url.Values{}
	q.Set("category", categoryFor(cat))
	q.Set("country", country)
	q.Set("pageSize", strconv.Itoa(pageSize))
	return c.fetch(ctx, "/top-headlines", q, cat)
}

// Everything searches /everything, newest first.
func (c *Client) Everything(ctx context.Context, query string, cat article.Category, pageSize int) ([]article.Article, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("sortBy", "publishedAt")
	q.Set("language", "en")
	return c.fetch(ctx, "/everything", q, cat)
}

func categoryFor(cat article.Category) string {
	if c, ok := categoryMap[cat]; ok {
		return c
	}
	return "general"
}

func (c *Client) fetch(ctx context.Context, path string, q url.Values, cat article.Category) ([]article.Article, error) {
	var b backoff.BackOff = backoff.NewExponentialBackOff(backoff.WithInitialInterval(c.initial))
	b = backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)

	resp, err := backoff.RetryWithData(func() (*response, error) {
		r, err := c.do(ctx, path, q)
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			return nil, backoff.Permanent(err)
		}
		return r, err
	}, b)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	return parseArticles(resp.Articles, cat), nil
}

func (c *Client) do(ctx context.Context, path string, q url.Values) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{Status: resp.StatusCode, Message: string(body)}
		var r response
		if json.Unmarshal(body, &r) == nil && r.Message != "" {
			apiErr.Code, apiErr.Message = r.Code, r.Message
		}
		return nil, apiErr
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding newsapi response: %w", err)
	}
	return &r, nil
}

// parseArticles drops records without a url or title and those NewsAPI
// reports as "[Removed]".
func parseArticles(raw []rawArticle, cat article.Category) []article.Article {
	articles := make([]article.Article, 0, len(raw))
	for _, item := range raw {
		if item.URL == "" || item.Title == "" || item.Title == "[Removed]" {
			continue
		}

		var published *time.Time
		if item.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, item.PublishedAt); err == nil {
				published = &t
			}
		}

		source := item.Source.Name
		if source == "" {
			source = "Unknown"
		}
		content := item.Description
		if content == "" {
			content = item.Content
		}

		articles = append(articles, article.Article{
			Title:     item.Title,
			URL:       item.URL,
			Source:    source,
			Category:  cat,
			Published: published,
			Content:   content,
		})
	}
	return articles
}
