package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cvanbaush/news-summaries/internal/article"
	"github.com/cvanbaush/news-summaries/internal/browser"
	"github.com/cvanbaush/news-summaries/internal/digest"
)

type focusPane int

const (
	focusList focusPane = iota
	focusPreview
)

type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeHelp
)

// BuildFunc runs the pipeline and returns a fresh digest.
type BuildFunc func(ctx context.Context) (*article.Digest, error)

type App struct {
	digest   *article.Digest
	overview digest.Overview
	history  []string
	articles []article.Article
	cursor   int
	focus    focusPane
	mode     mode
	tabs     categoryTabs

	width  int
	height int

	searchInput textinput.Model
	spinner     spinner.Model

	build   BuildFunc
	open    func(string) error
	timeout time.Duration

	loading       bool
	previewScroll int
	err           error
}

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Digest  *article.Digest // nil builds one on start
	History []string        // earlier titles, for trending terms
	Build   BuildFunc
	Open    func(url string) error // defaults to browser.Open
	Timeout time.Duration
}

func NewApp(opts RunOpts) *App {
	ti := textinput.New()
	ti.Placeholder = "Search digest..."
	ti.Prompt = searchPromptStyle.Render("/ ")
	ti.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	a := &App{
		history:     opts.History,
		searchInput: ti,
		spinner:     sp,
		build:       opts.Build,
		open:        opts.Open,
		timeout:     opts.Timeout,
	}
	if a.open == nil {
		a.open = browser.Open
	}
	if a.timeout <= 0 {
		a.timeout = 2 * time.Minute
	}
	if opts.Digest != nil {
		a.setDigest(opts.Digest)
	}
	return a
}

func (a *App) Init() tea.Cmd {
	if a.digest == nil && a.build != nil {
		a.loading = true
		return tea.Batch(a.buildCmd(), a.spinner.Tick)
	}
	return nil
}

func (a *App) setDigest(d *article.Digest) {
	a.digest = d
	a.overview = digest.NewOverview(d, a.history, time.Now())
	a.refilter()
}

// refilter recomputes the visible list from the active tab and search query.
func (a *App) refilter() {
	a.articles = filterArticles(a.digest, a.tabs.category(), a.searchInput.Value())
	if a.cursor >= len(a.articles) {
		a.cursor = max(0, len(a.articles)-1)
	}
	a.previewScroll = 0
}

func (a *App) buildCmd() tea.Cmd {
	build := a.build
	timeout := a.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		d, err := build(ctx)
		if err != nil {
			return digestErrMsg{err: err}
		}
		return digestLoadedMsg{digest: d}
	}
}

func (a *App) openBrowserCmd(url string) tea.Cmd {
	open := a.open
	return func() tea.Msg {
		if err := open(url); err != nil {
			return browserErrMsg{err: err}
		}
		return nil
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		a.err = nil
		return a.handleKey(msg)

	case digestLoadedMsg:
		a.loading = false
		a.setDigest(msg.digest)
		return a, nil

	case digestErrMsg:
		a.loading = false
		a.err = msg.err
		return a, nil

	case browserErrMsg:
		a.err = msg.err
		return a, nil

	case spinner.TickMsg:
		if a.loading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.mode {
	case modeSearch:
		return a.handleSearchKey(msg)
	case modeHelp:
		if msg.String() == "?" || msg.String() == "esc" || msg.String() == "q" {
			a.mode = modeNormal
		}
		return a, nil
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "j", "down":
		if a.focus == focusList && a.cursor < len(a.articles)-1 {
			a.cursor++
			a.previewScroll = 0
		} else if a.focus == focusPreview {
			a.previewScroll++
		}
		return a, nil
	case "k", "up":
		if a.focus == focusList && a.cursor > 0 {
			a.cursor--
			a.previewScroll = 0
		} else if a.focus == focusPreview && a.previewScroll > 0 {
			a.previewScroll--
		}
		return a, nil
	case "tab":
		if a.focus == focusList {
			a.focus = focusPreview
		} else {
			a.focus = focusList
		}
		return a, nil
	case "right", "l":
		a.tabs.next()
		a.cursor = 0
		a.refilter()
		return a, nil
	case "left", "h":
		a.tabs.prev()
		a.cursor = 0
		a.refilter()
		return a, nil
	case "1", "2", "3", "4":
		a.tabs.set(int(msg.String()[0] - '1'))
		a.cursor = 0
		a.refilter()
		return a, nil
	case "o", "enter":
		if len(a.articles) > 0 && a.cursor < len(a.articles) {
			return a, a.openBrowserCmd(a.articles[a.cursor].URL)
		}
		return a, nil
	case "/":
		a.mode = modeSearch
		a.searchInput.Focus()
		return a, textinput.Blink
	case "r":
		if !a.loading && a.build != nil {
			a.loading = true
			return a, tea.Batch(a.buildCmd(), a.spinner.Tick)
		}
		return a, nil
	case "?":
		a.mode = modeHelp
		return a, nil
	}

	return a, nil
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		a.searchInput.SetValue("")
		a.searchInput.Blur()
		a.refilter()
		return a, nil
	case "enter":
		a.mode = modeNormal
		a.searchInput.Blur()
		return a, nil
	}

	prev := a.searchInput.Value()
	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	if a.searchInput.Value() != prev {
		a.cursor = 0
		a.refilter()
	}
	return a, cmd
}

func (a *App) withBottomBar(content string, hints string) string {
	bar := renderBottomBar(hints, a.width)
	lines := strings.Split(content, "\n")
	for len(lines) < a.height-1 {
		lines = append(lines, "")
	}
	if len(lines) >= a.height {
		lines = lines[:a.height-1]
	}
	lines = append(lines, bar)
	return strings.Join(lines, "\n")
}

func (a *App) renderHeader() string {
	left := headerStyle.Render("News Digest")
	date := "building..."
	if a.digest != nil {
		date = a.digest.GeneratedAt.Format("Jan 2, 3:04 PM")
	}
	right := headerDateStyle.Render(date)
	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	header := left + fmt.Sprintf("%*s", gap, "") + right

	if a.digest == nil {
		return header
	}
	o := a.overview
	line := fmt.Sprintf("%s. %d stories", o.Greeting, o.Total)
	if o.ActiveSources != "" {
		line += " from " + o.ActiveSources
	}
	if o.Trending != "" {
		line += " · trending: " + o.Trending
	}
	header += "\n" + overviewStyle.Render(truncateStr(line, a.width-2))
	if a.digest.Intro != "" {
		header += "\n" + overviewStyle.Render(introStyle.Render(truncateStr(a.digest.Intro, a.width-2)))
	}
	return header
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  newsdigest")
	}

	if a.mode == modeHelp {
		return a.withBottomBar(a.renderHelp(), "? close  q quit")
	}

	header := a.renderHeader()
	tabs := a.tabs.render(a.digest, a.width)
	if a.mode == modeSearch {
		tabs = a.searchInput.View()
	}

	headerHeight := lipgloss.Height(header)
	statusHeight := 1
	contentHeight := a.height - headerHeight - 1 - statusHeight - 2 // borders
	if contentHeight < 3 {
		contentHeight = 3
	}

	listWidth := int(float64(a.width) * 0.35)
	previewWidth := a.width - listWidth - 1

	var listContent string
	if a.loading && a.digest == nil {
		listContent = lipglossCenter(a.spinner.View()+" Building digest...", listWidth-4, contentHeight)
	} else {
		listContent = renderList(a.articles, a.cursor, contentHeight, listWidth-4)
	}

	var listPane string
	if a.focus == focusList {
		listPane = listPaneActiveStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)
	} else {
		listPane = listPaneStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)
	}

	var selected *article.Article
	if len(a.articles) > 0 && a.cursor < len(a.articles) {
		selected = &a.articles[a.cursor]
	}
	previewContent := renderPreview(selected, previewWidth-4, contentHeight, a.previewScroll)

	var previewPane string
	if a.focus == focusPreview {
		previewPane = previewPaneActiveStyle.Width(previewWidth - 2).Height(contentHeight).Render(previewContent)
	} else {
		previewPane = previewPaneStyle.Width(previewWidth - 2).Height(contentHeight).Render(previewContent)
	}

	content := lipgloss.JoinHorizontal(lipgloss.Top, listPane, previewPane)

	status := renderStatusBar(
		len(a.articles),
		a.tabs.label(),
		a.searchInput.Value(),
		a.width,
		a.mode == modeSearch,
		a.loading,
	)
	if a.loading {
		status = a.spinner.View() + " " + status
	}
	if a.err != nil {
		status = lipgloss.NewStyle().Foreground(colorAccent).Render(a.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, tabs, content, status)
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("newsdigest")
	dim := helpDimStyle

	help := title + dim.Render(" keyboard shortcuts") + "\n\n" +
		dim.Render("Navigation") + "\n" +
		"  j/k, ↑/↓      Move through articles\n" +
		"  tab           Switch focus between list and preview\n" +
		"  h/l, ←/→      Previous / next section\n" +
		"  1-4           All, World, National, Local\n\n" +
		dim.Render("Actions") + "\n" +
		"  o, enter      Open article in browser\n" +
		"  /             Search titles, sources and summaries\n" +
		"  r             Rebuild the digest\n\n" +
		dim.Render("General") + "\n" +
		"  ?             Toggle this help\n" +
		"  q, ctrl+c     Quit"

	card := helpCardStyle.Render(help)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card)
}

// Run starts the TUI application.
func Run(opts RunOpts) error {
	app := NewApp(opts)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
