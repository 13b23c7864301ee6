// Package pipeline turns configured sources into a deduplicated digest.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cvanbaush/news-summaries/internal/ai"
	"github.com/cvanbaush/news-summaries/internal/article"
	"github.com/cvanbaush/news-summaries/internal/config"
	"github.com/cvanbaush/news-summaries/internal/dedup"
	"github.com/cvanbaush/news-summaries/internal/digest"
	"github.com/cvanbaush/news-summaries/internal/feed"
	"github.com/cvanbaush/news-summaries/internal/logger"
	"github.com/cvanbaush/news-summaries/internal/newsapi"
)

// Headlines is the NewsAPI surface the pipeline needs.
type Headlines interface {
	TopHeadlines(ctx context.Context, cat article.Category, country string, pageSize int) ([]article.Article, error)
	Everything(ctx context.Context, query string, cat article.Category, pageSize int) ([]article.Article, error)
}

// Memo supplies summaries generated by earlier runs, keyed by article ID.
type Memo interface {
	Summaries(ids []string) (map[string]string, error)
}

type Pipeline struct {
	NewsAPI        Headlines // nil disables NewsAPI
	Country        string
	PageSize       int
	LocalQuery     string
	Feeds          feed.Fetcher
	Jobs           []feed.Job
	Summarizer     ai.Summarizer // nil disables summarization
	Batch          ai.BatchOptions
	Memo           Memo
	MaxPerCategory int
	Now            func() time.Time
}

type Result struct {
	Digest  *article.Digest
	Unique  article.Collection // every article that survived dedup, before the cap
	Fetched int
	Report  dedup.Report
	Errors  []error
}

// Options adjust FromConfig beyond what the config file says.
type Options struct {
	NoSummary      bool
	MaxPerCategory int // overrides config when > 0
	Memo           Memo
}

// FromConfig wires a pipeline from cfg. A missing NewsAPI key is fatal only
// when no RSS source is enabled either.
func FromConfig(cfg *config.Config, opts Options) (*Pipeline, error) {
	p := &Pipeline{
		Country:        cfg.NewsAPI.Country,
		PageSize:       cfg.NewsAPI.PageSize,
		LocalQuery:     cfg.NewsAPI.LocalQuery,
		Feeds:          feed.NewRSSFetcher(),
		Jobs:           feed.Jobs(cfg),
		Memo:           opts.Memo,
		MaxPerCategory: cfg.GetMaxPerCategory(),
		Now:            utcNow,
	}
	if opts.MaxPerCategory > 0 {
		p.MaxPerCategory = opts.MaxPerCategory
	}

	if cfg.NewsAPI.Enabled {
		client, err := newsapi.New(cfg.NewsAPIKey())
		switch {
		case err == nil:
			p.NewsAPI = client
		case errors.Is(err, newsapi.ErrMissingKey) && cfg.HasEnabledSources():
			logger.Warnf("%s not set; using RSS sources only", config.EnvNewsAPIKey)
		default:
			return nil, fmt.Errorf("%w: set %s or enable an RSS source", err, config.EnvNewsAPIKey)
		}
	}
	if p.NewsAPI == nil && !cfg.HasEnabledSources() {
		return nil, errors.New("no sources: enable newsapi or at least one RSS source")
	}

	if opts.NoSummary {
		logger.Infof("Summarization disabled")
		return p, nil
	}
	s, err := ai.New(cfg.AI, cfg.AIKey())
	switch {
	case err == nil:
		p.Summarizer = s
		if cfg.AI != nil {
			p.Batch = ai.BatchOptions{Concurrency: cfg.AI.Concurrency, RequestsPerMinute: cfg.AI.RequestsPerMinute}
		}
	case errors.Is(err, ai.ErrNotConfigured):
		logger.Infof("No %s API key found; skipping summarization", cfg.AIProvider())
	default:
		return nil, fmt.Errorf("creating summarizer: %w", err)
	}
	return p, nil
}

func utcNow() time.Time { return time.Now().UTC() }

// Close releases the summarizer's client, if it holds one.
func (p *Pipeline) Close() error {
	if c, ok := p.Summarizer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Run fetches, deduplicates, caps and summarizes. Source and summary failures
// are collected in Result.Errors; only context cancellation aborts the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	fetched, errs := p.fetch(ctx)
	res.Errors = append(res.Errors, errs...)
	for _, err := range errs {
		logger.Warnf("%v", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Fetched = fetched.Total()
	logger.Infof("Found %d articles", res.Fetched)

	unique, report := dedup.DeduplicateWithReport(fetched)
	res.Unique = unique
	res.Report = report
	logger.Infow("After deduplication",
		"unique", report.Kept, "duplicate_url", report.ByURL, "duplicate_title", report.ByTitle)

	limited := unique.Limit(p.MaxPerCategory)

	var intro string
	if p.Summarizer != nil {
		var sumErrs []error
		limited, sumErrs = p.summarize(ctx, limited)
		res.Errors = append(res.Errors, sumErrs...)

		if n := limited.Total(); n > 0 {
			text, err := p.Summarizer.Intro(ctx, n)
			if err != nil {
				logger.Warnf("writing intro: %v", err)
				res.Errors = append(res.Errors, fmt.Errorf("writing intro: %w", err))
			}
			intro = text
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := utcNow
	if p.Now != nil {
		now = p.Now
	}
	res.Digest = digest.Assemble(limited, p.MaxPerCategory, intro, now())
	return res, nil
}

func (p *Pipeline) summarize(ctx context.Context, c article.Collection) (article.Collection, []error) {
	if p.Memo != nil {
		var ids []string
		for _, cat := range article.Priority {
			for _, a := range c[cat] {
				ids = append(ids, a.ID())
			}
		}
		memo, err := p.Memo.Summaries(ids)
		if err != nil {
			logger.Warnf("reading cached summaries: %v", err)
		}
		hits := 0
		for _, cat := range article.Priority {
			for i := range c[cat] {
				if s, ok := memo[c[cat][i].ID()]; ok && c[cat][i].Summary == "" {
					c[cat][i].Summary = s
					hits++
				}
			}
		}
		logger.Debugf("Reusing %d cached summaries", hits)
	}

	logger.Infof("Summarizing articles...")
	return ai.SummarizeCollection(ctx, p.Summarizer, c, p.Batch)
}

// fetch gathers NewsAPI and RSS articles concurrently. Within a category
// NewsAPI results come first, then RSS sources in configuration order.
func (p *Pipeline) fetch(ctx context.Context) (article.Collection, []error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		errs     []error
		headline = article.NewCollection()
		rss      feed.FetchResult
	)

	if p.NewsAPI != nil {
		calls := map[article.Category]func() ([]article.Article, error){
			article.World: func() ([]article.Article, error) {
				return p.NewsAPI.TopHeadlines(ctx, article.World, p.Country, p.PageSize)
			},
			article.National: func() ([]article.Article, error) {
				return p.NewsAPI.TopHeadlines(ctx, article.National, p.Country, p.PageSize)
			},
		}
		if p.LocalQuery != "" {
			calls[article.Local] = func() ([]article.Article, error) {
				return p.NewsAPI.Everything(ctx, p.LocalQuery, article.Local, p.PageSize)
			}
		}
		for cat, call := range calls {
			wg.Add(1)
			go func(cat article.Category, call func() ([]article.Article, error)) {
				defer wg.Done()
				logger.Infof("Fetching %s news from NewsAPI...", cat)
				arts, err := call()
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, fmt.Errorf("newsapi %s: %w", cat, err))
					return
				}
				headline[cat] = arts
			}(cat, call)
		}
	}

	if len(p.Jobs) > 0 && p.Feeds != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rss = feed.FetchAll(ctx, p.Feeds, p.Jobs)
		}()
	}
	wg.Wait()

	out := article.NewCollection()
	for _, cat := range article.Priority {
		out[cat] = append(out[cat], headline[cat]...)
		out[cat] = append(out[cat], rss.Articles[cat]...)
	}
	return out, append(errs, rss.Errors...)
}
