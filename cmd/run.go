package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cvanbaush/news-summaries/internal/article"
	"github.com/cvanbaush/news-summaries/internal/cache"
	"github.com/cvanbaush/news-summaries/internal/config"
	"github.com/cvanbaush/news-summaries/internal/digest"
	"github.com/cvanbaush/news-summaries/internal/logger"
	"github.com/cvanbaush/news-summaries/internal/pipeline"
	"github.com/spf13/cobra"
)

// runTimeout bounds one full fetch-and-summarize run.
const runTimeout = 3 * time.Minute

func runDigest(cmd *cobra.Command, args []string) error {
	cfg, err := setup(false)
	if err != nil {
		return err
	}

	db, err := cache.Open(config.CachePath())
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	d, md, err := buildDigest(ctx, cfg, db, pipeline.Options{
		NoSummary:      flagNoSummary,
		MaxPerCategory: flagMaxPerCategory,
	})
	if err != nil {
		return err
	}

	output := flagOutput
	if output == "" {
		output = cfg.Output
	}
	if output == "-" {
		fmt.Print(md)
		return nil
	}
	if err := os.WriteFile(output, []byte(md), 0o644); err != nil {
		return fmt.Errorf("writing digest: %w", err)
	}
	logger.Infof("Digest saved to %s (%d articles)", output, d.TotalArticles())
	return nil
}

// buildDigest runs the pipeline, renders Markdown and records the run in the
// cache, archiving every deduplicated article so it stays searchable. Cache failures after a successful run are logged, not returned.
func buildDigest(ctx context.Context, cfg *config.Config, db *cache.Cache, opts pipeline.Options) (*article.Digest, string, error) {
	opts.Memo = db
	p, err := pipeline.FromConfig(cfg, opts)
	if err != nil {
		return nil, "", err
	}
	defer p.Close()

	res, err := p.Run(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("building digest: %w", err)
	}
	if len(res.Errors) > 0 {
		logger.Warnf("%d source or summary error(s); digest may be incomplete", len(res.Errors))
	}

	md := digest.Markdown(res.Digest)

	var unique []article.Article
	for _, cat := range article.Priority {
		unique = append(unique, res.Unique[cat]...)
	}
	if err := db.UpsertArticles(unique, res.Digest.GeneratedAt); err != nil {
		logger.Warnf("archiving articles: %v", err)
	}

	if id, err := db.SaveDigest(res.Digest, md); err != nil {
		logger.Warnf("caching digest: %v", err)
	} else {
		logger.Debugf("Cached digest %s", id)
	}
	if err := db.SetLastRefresh(res.Digest.GeneratedAt); err != nil {
		logger.Warnf("recording refresh time: %v", err)
	}
	if n, err := db.Prune(cfg.RetentionDuration()); err != nil {
		logger.Warnf("pruning cache: %v", err)
	} else if n > 0 {
		logger.Infof("Pruned %d old article(s)", n)
	}

	return res.Digest, md, nil
}
