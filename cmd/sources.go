package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/cvanbaush/news-summaries/internal/ai"
	"github.com/cvanbaush/news-summaries/internal/article"
	"github.com/cvanbaush/news-summaries/internal/config"
	"github.com/spf13/cobra"
)

var (
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	enabledStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#25D366"})
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"})
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured news sources by section",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(false)
		if err != nil {
			return err
		}
		printSources(os.Stdout, cfg)
		return nil
	},
}

func printSources(w io.Writer, cfg *config.Config) {
	newsapi := disabledStyle.Render("disabled")
	if cfg.NewsAPI.Enabled {
		state := "no key"
		if cfg.NewsAPIKey() != "" {
			state = "ready"
		}
		newsapi = enabledStyle.Render(fmt.Sprintf("enabled (%s, country %s)", state, cfg.NewsAPI.Country))
	}
	fmt.Fprintf(w, "NewsAPI: %s\n", newsapi)
	if cfg.NewsAPI.LocalQuery != "" {
		fmt.Fprintf(w, "  local query: %q\n", cfg.NewsAPI.LocalQuery)
	}

	model := cfg.AIModel()
	if model == "" {
		model = ai.DefaultModel(cfg.AIProvider())
	}
	summaries := disabledStyle.Render(fmt.Sprintf("off (%s, %s, no key)", cfg.AIProvider(), model))
	if cfg.AIEnabled() {
		summaries = enabledStyle.Render(fmt.Sprintf("on (%s, %s)", cfg.AIProvider(), model))
	}
	fmt.Fprintf(w, "Summaries: %s\n", summaries)

	for _, cat := range article.Priority {
		fmt.Fprintf(w, "\n%s\n", sectionStyle.Render(cat.Title()))
		srcs := cfg.Sources.For(cat)
		if len(srcs) == 0 {
			fmt.Fprintln(w, disabledStyle.Render("  (none)"))
			continue
		}
		for _, s := range srcs {
			mark := enabledStyle.Render("●")
			if !s.Enabled {
				mark = disabledStyle.Render("○")
			}
			fmt.Fprintf(w, "  %s %-24s %s\n", mark, s.Name, disabledStyle.Render(s.URL))
		}
	}
}
