package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cvanbaush/news-summaries/internal/article"
	"github.com/cvanbaush/news-summaries/internal/config"
	"github.com/mmcdole/gofeed"
)

type Fetcher interface {
	Fetch(ctx context.Context, source config.Source, cat article.Category) ([]article.Article, error)
}

type RSSFetcher struct {
	parser *gofeed.Parser
}

func NewRSSFetcher() *RSSFetcher {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: 30 * time.Second}
	p.UserAgent = "newsdigest/1.0"
	return &RSSFetcher{parser: p}
}

// Fetch parses one RSS or Atom source. Disabled sources yield nothing.
func (f *RSSFetcher) Fetch(ctx context.Context, source config.Source, cat article.Category) ([]article.Article, error) {
	if !source.Enabled {
		return nil, nil
	}

	feed, err := f.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", source.Name, err)
	}

	articles := make([]article.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}

		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "No title"
		}

		var published *time.Time
		if item.PublishedParsed != nil {
			published = item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed
		}

		desc := item.Description
		if desc == "" {
			desc = item.Content
		}

		articles = append(articles, article.Article{
			Title:     title,
			URL:       link,
			Source:    source.Name,
			Category:  cat,
			Published: published,
			Content:   stripHTML(desc),
		})
	}
	return articles, nil
}

// stripHTML returns the text content of an HTML fragment with whitespace
// collapsed.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Job pairs a source with the category its articles belong to.
type Job struct {
	Source   config.Source
	Category article.Category
}

// Jobs lists the enabled sources of cfg in category priority order.
func Jobs(cfg *config.Config) []Job {
	var jobs []Job
	for _, cat := range article.Priority {
		for _, s := range cfg.EnabledSources(cat) {
			jobs = append(jobs, Job{Source: s, Category: cat})
		}
	}
	return jobs
}

type FetchResult struct {
	Articles article.Collection
	Errors   []error
}

// FetchAll runs every job concurrently. Articles are appended to their
// category in job order, so the result does not depend on which feed
// answered first.
func FetchAll(ctx context.Context, fetcher Fetcher, jobs []Job) FetchResult {
	var (
		wg    sync.WaitGroup
		slots = make([][]article.Article, len(jobs))
		errs  = make([]error, len(jobs))
	)

	for i, job := range jobs {
		wg.Add(1)
		go func(i int, j Job) {
			defer wg.Done()
			slots[i], errs[i] = fetcher.Fetch(ctx, j.Source, j.Category)
		}(i, job)
	}
	wg.Wait()

	result := FetchResult{Articles: article.NewCollection()}
	for i, job := range jobs {
		if errs[i] != nil {
			result.Errors = append(result.Errors, errs[i])
			continue
		}
		result.Articles[job.Category] = append(result.Articles[job.Category], slots[i]...)
	}
	return result
}
