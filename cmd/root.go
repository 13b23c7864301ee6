package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/cvanbaush/news-summaries/internal/config"
	"github.com/cvanbaush/news-summaries/internal/logger"
	"github.com/cvanbaush/news-summaries/internal/update"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig         string
	flagOutput         string
	flagMaxPerCategory int
	flagNoSummary      bool
	flagLogLevel       string
	flagLogFile        string
	flagCheckUpdate    bool
)

var rootCmd = &cobra.Command{
	Use:   "newsdigest",
	Short: "Build a deduplicated, summarized news digest",
	Long: `newsdigest collects world, national and local headlines from NewsAPI and RSS
feeds, drops stories that already appeared in a higher-priority section, and
writes a Markdown digest with optional AI summaries.`,
	SilenceUsage: true,
	RunE:         runDigest,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "also write logs to this file (rotated)")

	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", `output file, "-" for stdout (default from config: digest.md)`)
	rootCmd.Flags().IntVar(&flagMaxPerCategory, "max-per-category", 0, "articles kept per section (overrides config)")
	rootCmd.Flags().BoolVar(&flagNoSummary, "no-summary", false, "skip AI summaries")

	versionCmd.Flags().BoolVar(&flagCheckUpdate, "check", false, "check GitHub for a newer release")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(articlesCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("newsdigest %s (commit: %s, built: %s)\n", version, commit, date)
		if !flagCheckUpdate {
			return
		}
		if res := update.Check(cmd.Context(), update.ReleasesURL, version); res != nil {
			fmt.Printf("A newer release is available: %s\n", res.LatestVersion)
		} else {
			fmt.Println("You are on the latest release.")
		}
	},
}

// setup loads .env and the config file, then configures logging. Flags
// override the log settings from config.
func setup(quiet bool) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	lc := logger.Config{Level: cfg.Log.Level, File: cfg.Log.File, Quiet: quiet}
	if flagLogLevel != "" {
		lc.Level = flagLogLevel
	}
	if flagLogFile != "" {
		lc.File = flagLogFile
	}
	if err := logger.Init(lc); err != nil {
		return nil, fmt.Errorf("configuring logger: %w", err)
	}
	return cfg, nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
