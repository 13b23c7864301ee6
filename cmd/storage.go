package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/cvanbaush/news-summaries/internal/cache"
	"github.com/cvanbaush/news-summaries/internal/config"
	"github.com/spf13/cobra"
)

var (
	flagPruneOlderThan string
	flagHistoryLimit   int
	flagHistoryShow    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previously generated digests",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setup(false); err != nil {
			return err
		}
		db, err := cache.Open(config.CachePath())
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer db.Close()

		if flagHistoryShow {
			records, err := db.ListDigests(1)
			if err != nil {
				return fmt.Errorf("reading history: %w", err)
			}
			if len(records) == 0 {
				return cache.ErrNoDigest
			}
			fmt.Print(records[0].Output)
			return nil
		}

		records, err := db.ListDigests(flagHistoryLimit)
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}
		if len(records) == 0 {
			fmt.Println("No digests yet. Run newsdigest to build one.")
			return nil
		}
		for _, r := range records {
			fmt.Printf("%s  %s  %2d articles (world %d, national %d, local %d)\n",
				r.ID[:8], r.GeneratedAt.Local().Format("2006-01-02 15:04"),
				r.Total(), r.World, r.National, r.Local)
		}
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old digests and articles from the local cache",
	Long: `Delete cached digests and articles older than the retention period and reclaim disk space.

Uses the retention value from config (default: 30d) unless overridden with --older-than.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(false)
		if err != nil {
			return err
		}

		db, err := cache.Open(config.CachePath())
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer db.Close()

		retention := cfg.RetentionDuration()
		if flagPruneOlderThan != "" {
			d, err := parseSince(flagPruneOlderThan)
			if err != nil {
				return fmt.Errorf("invalid --older-than value: %w", err)
			}
			retention = d
		}

		deleted, err := db.Prune(retention)
		if err != nil {
			return fmt.Errorf("pruning: %w", err)
		}

		if deleted == 0 {
			fmt.Println("Nothing to prune.")
		} else {
			fmt.Printf("Pruned %d article(s) older than %s.\n", deleted, formatDuration(retention))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := config.CachePath()
		db, err := cache.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer db.Close()

		st, err := db.Stats(dbPath)
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		fmt.Printf("Cache: %s\n", dbPath)
		fmt.Printf("Articles: %d (%d summarized)\n", st.Articles, st.Summaries)
		fmt.Printf("Digests: %d\n", st.Digests)
		fmt.Printf("Size: %s\n", formatBytes(st.SizeBytes))
		return nil
	},
}

func init() {
	pruneCmd.Flags().StringVar(&flagPruneOlderThan, "older-than", "", "override retention period (e.g., 30d, 720h)")
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 10, "number of digests to list")
	historyCmd.Flags().BoolVar(&flagHistoryShow, "show", false, "print the latest digest's Markdown")
}

// parseSince reads a positive duration such as 7d, 24h or 90m.
func parseSince(s string) (time.Duration, error) {
	d, err := config.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("duration must be positive")
	}
	return d, nil
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
