package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cvanbaush/news-summaries/internal/article"
	"github.com/cvanbaush/news-summaries/internal/cache"
	"github.com/cvanbaush/news-summaries/internal/config"
	"github.com/cvanbaush/news-summaries/internal/logger"
	"github.com/cvanbaush/news-summaries/internal/pipeline"
	"github.com/cvanbaush/news-summaries/internal/tui"
	"github.com/spf13/cobra"
)

var (
	flagRefresh      bool
	flagBrowseMaxAge string
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Open the digest in an interactive viewer",
	Long: `Show the latest digest in a two-pane terminal viewer.

The cached digest is reused while it is younger than --max-age; otherwise a
new one is built on start. Press r inside the viewer to rebuild.`,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().BoolVar(&flagRefresh, "refresh", false, "build a new digest even if a recent one is cached")
	browseCmd.Flags().StringVar(&flagBrowseMaxAge, "max-age", "1h", "reuse a cached digest younger than this (e.g., 30m, 1d)")
	browseCmd.Flags().BoolVar(&flagNoSummary, "no-summary", false, "skip AI summaries when building")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, err := setup(true)
	if err != nil {
		return err
	}

	maxAge, err := parseSince(flagBrowseMaxAge)
	if err != nil {
		return fmt.Errorf("invalid --max-age value: %w", err)
	}

	db, err := cache.Open(config.CachePath())
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer db.Close()

	var current *article.Digest
	if !flagRefresh && !db.NeedsRefresh(maxAge) {
		current, err = db.LatestDigest()
		if err != nil && !errors.Is(err, cache.ErrNoDigest) {
			logger.Warnf("loading cached digest: %v", err)
		}
	}

	history, err := db.RecentTitles(time.Now().Add(-cfg.RetentionDuration()))
	if err != nil {
		logger.Warnf("loading title history: %v", err)
	}

	return tui.Run(tui.RunOpts{
		Digest:  current,
		History: history,
		Timeout: runTimeout,
		Build: func(ctx context.Context) (*article.Digest, error) {
			d, _, err := buildDigest(ctx, cfg, db, pipeline.Options{NoSummary: flagNoSummary})
			return d, err
		},
	})
}
