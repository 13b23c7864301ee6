package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cvanbaush/news-summaries/internal/article"
	"github.com/cvanbaush/news-summaries/internal/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// BatchOptions bounds how hard a batch hits the provider.
type BatchOptions struct {
	Concurrency       int // default 3
	RequestsPerMinute int // 0 means unlimited
}

func (o BatchOptions) limiter() *rate.Limiter {
	if o.RequestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(o.RequestsPerMinute)), 1)
}

// SummarizeCollection returns a copy of c in which every article that has
// content and no summary yet gets one. A failed article keeps an empty
// summary; its error is returned alongside the other failures.
func SummarizeCollection(ctx context.Context, s Summarizer, c article.Collection, opts BatchOptions) (article.Collection, []error) {
	out := article.NewCollection()
	for _, cat := range article.Priority {
		out[cat] = append(out[cat], c[cat]...)
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}
	limiter := opts.limiter()

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(concurrency)

	for _, cat := range article.Priority {
		arts := out[cat]
		for i := range arts {
			if arts[i].Content == "" || arts[i].Summary != "" {
				continue
			}
			a := &arts[i]
			g.Go(func() error {
				err := limiter.Wait(ctx)
				if err == nil {
					var summary string
					summary, err = s.Summarize(ctx, *a)
					if err == nil {
						a.Summary = summary
						return nil
					}
				}
				logger.Warnf("summarizing %q: %v", a.Title, err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("summarizing %q: %w", a.Title, err))
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	return out, errs
}
