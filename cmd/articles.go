package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cvanbaush/news-summaries/internal/article"
	"github.com/cvanbaush/news-summaries/internal/cache"
	"github.com/cvanbaush/news-summaries/internal/config"
	"github.com/spf13/cobra"
)

var (
	flagArticlesSearch  string
	flagArticlesSection string
	flagArticlesSources []string
	flagArticlesSince   string
	flagArticlesLimit   int
)

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "Search archived articles",
	Long: `List articles kept in the local cache, newest first.

Every article that survived deduplication is archived, including those cut by
the per-section limit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setup(false); err != nil {
			return err
		}
		opts, err := articleQuery()
		if err != nil {
			return err
		}

		db, err := cache.Open(config.CachePath())
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer db.Close()

		arts, err := db.GetArticles(opts)
		if err != nil {
			return fmt.Errorf("searching archive: %w", err)
		}
		printArticles(os.Stdout, arts)
		return nil
	},
}

func init() {
	articlesCmd.Flags().StringVarP(&flagArticlesSearch, "search", "s", "", "match title, content or summary")
	articlesCmd.Flags().StringVar(&flagArticlesSection, "section", "", "world, national or local")
	articlesCmd.Flags().StringSliceVar(&flagArticlesSources, "source", nil, "only these sources (repeatable)")
	articlesCmd.Flags().StringVar(&flagArticlesSince, "since", "", "only articles fetched within this duration (e.g., 7d, 24h)")
	articlesCmd.Flags().IntVarP(&flagArticlesLimit, "limit", "n", 20, "maximum number of articles")
}

// articleQuery turns the articles flags into cache query options.
func articleQuery() (cache.QueryOpts, error) {
	opts := cache.QueryOpts{
		Search:  flagArticlesSearch,
		Sources: flagArticlesSources,
		Limit:   flagArticlesLimit,
	}
	if flagArticlesSection != "" {
		cat, err := article.ParseCategory(flagArticlesSection)
		if err != nil {
			return opts, err
		}
		opts.Category = string(cat)
	}
	if flagArticlesSince != "" {
		d, err := parseSince(flagArticlesSince)
		if err != nil {
			return opts, fmt.Errorf("invalid --since value: %w", err)
		}
		opts.Since = time.Now().Add(-d)
	}
	return opts, nil
}

func printArticles(w io.Writer, arts []article.Article) {
	if len(arts) == 0 {
		fmt.Fprintln(w, "No matching articles.")
		return
	}
	for _, a := range arts {
		when := "undated"
		if a.Published != nil {
			when = a.Published.Local().Format("2006-01-02")
		}
		fmt.Fprintf(w, "%-8s %s  %s\n", a.Category, when, a.Title)
		fmt.Fprintf(w, "         %s · %s\n", a.Source, a.URL)
	}
}
