package tui

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/quip/internal/config"
	"github.com/pders01/quip/internal/coord"
	"github.com/pders01/quip/internal/search"
)

// chromeHeight is the number of lines taken by header, separator and status bar.
const chromeHeight = 5

type App struct {
	ctx             context.Context
	config          *config.Config
	coord           *coord.Coordinator
	searcher        search.Searcher
	keyHandler      *KeyHandler
	spinner         spinner.Model
	spinning        bool
	searchInput     textinput.Model
	searchList      list.Model
	viewport        viewport.Model
	view            View
	previousView    View
	expanded        map[string]bool
	rows            []row
	cursor          int
	offset          int
	currentJoke     *row
	showHelp        bool
	width           int
	height          int
	status          string
	statusKind      StatusKind
	err             error
	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
	now             func() time.Time
}

// NewApp builds the browser around c. searcher may be nil, which disables
// search. ctx bounds every remote call the app issues.
func NewApp(ctx context.Context, c *coord.Coordinator, searcher search.Searcher, cfg *config.Config) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(AccentColor)

	searchList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	searchList.Title = "› search results"
	searchList.SetShowStatusBar(false)
	searchList.SetShowHelp(false)
	searchList.SetFilteringEnabled(false)

	si := textinput.New()
	si.Placeholder = "Search loaded jokes..."
	si.CharLimit = 256

	app := &App{
		ctx:         ctx,
		config:      cfg,
		coord:       c,
		searcher:    searcher,
		spinner:     s,
		searchInput: si,
		searchList:  searchList,
		viewport:    viewport.New(0, 0),
		view:        ViewCategories,
		expanded:    make(map[string]bool),
		now:         time.Now,
	}
	app.keyHandler = NewKeyHandler(app, cfg)
	app.rebuildRows()

	return app
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	wordWrapWidth := (a.width * 7) / 10
	if wordWrapWidth > 80 {
		wordWrapWidth = 80
	}
	if wordWrapWidth < 20 {
		wordWrapWidth = 20
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.loadCategories(),
		tea.EnterAltScreen,
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

		searchListHeight := msg.Height - 10
		if searchListHeight < 5 {
			searchListHeight = 5
		}
		a.searchList.SetSize(msg.Width, searchListHeight)

		modalWidth, modalHeight := a.modalSize()
		a.viewport.Width = modalWidth
		a.viewport.Height = modalHeight
		a.clampOffset()
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case spinner.TickMsg:
		if !a.busy() {
			a.spinning = false
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case fetchDoneMsg:
		a.handleFetchDone(msg.result)
		return a, nil

	case refreshTickMsg:
		// The refresh floor has passed; the next View drops the indicator.
		return a, nil

	case jokeRenderedMsg:
		if a.view == ViewJoke {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
		}
		return a, nil

	case searchResultsMsg:
		a.handleSearchResults(msg)
		return a, nil

	case errorMsg:
		a.err = msg.err
		return a, nil
	}

	if a.view == ViewJoke {
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleFetchDone(res coord.Result) {
	outcome := a.coord.Complete(res)

	switch res.Request.Kind {
	case coord.KindCategories:
		switch outcome {
		case coord.Applied:
			a.err = nil
			a.setStatus(MsgCategoriesLoaded(a.coord.Index().Len()), StatusSuccess)
		case coord.Failed:
			a.setStatus(fmt.Sprintf("%v • r: retry", a.coord.ListFailure()), StatusError)
		}
	case coord.KindJokes:
		switch outcome {
		case coord.Applied:
			a.setStatus(MsgJokesAdded(res.Request.Category, len(res.Jokes)), StatusInfo)
		case coord.Failed:
			a.setStatus(fmt.Sprintf("%s: %v", res.Request.Category, a.coord.Failure(res.Request.Category)), StatusError)
		}
	}

	a.rebuildRows()
}

func (a *App) handleSearchResults(msg searchResultsMsg) {
	if a.view != ViewSearch || msg.query != sanitizeSearchInput(a.searchInput.Value()) {
		return
	}
	if msg.err != nil {
		a.setStatus(msg.err.Error(), StatusError)
		return
	}

	items := make([]list.Item, len(msg.hits))
	for i, h := range msg.hits {
		items[i] = searchHitItem{hit: h}
	}
	a.searchList.SetItems(items)
	if len(items) == 0 {
		a.setStatus(MsgNoResults, StatusInfo)
	} else {
		a.setStatus(MsgResultsCount(len(items)), StatusInfo)
	}
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
}

// busy reports whether anything that wants a spinner is in progress.
func (a *App) busy() bool {
	if a.coord.LoadingCategories() || a.coord.Refreshing(a.now()) {
		return true
	}
	for _, name := range a.coord.Index().Names() {
		if a.coord.Pending(name) {
			return true
		}
	}
	return false
}

func (a *App) startSpinner() tea.Cmd {
	if a.spinning {
		return nil
	}
	a.spinning = true
	return a.spinner.Tick
}

// rebuildRows flattens the index into selectable rows, keeping the cursor on
// the same row where possible.
func (a *App) rebuildRows() {
	var keep *row
	if a.cursor >= 0 && a.cursor < len(a.rows) {
		r := a.rows[a.cursor]
		keep = &r
	}

	snap := a.coord.Snapshot()
	rows := make([]row, 0, len(snap))
	for i, c := range snap {
		rows = append(rows, row{kind: rowCategory, category: c.Name, number: i + 1})
		if !a.expanded[c.Name] {
			continue
		}
		for j, joke := range c.Jokes {
			rows = append(rows, row{kind: rowJoke, category: c.Name, number: i + 1, joke: joke, position: j})
		}
		if a.coord.CanLoadMore(c.Name) || a.coord.Pending(c.Name) {
			rows = append(rows, row{kind: rowMore, category: c.Name, number: i + 1})
		}
	}
	a.rows = rows

	if keep != nil {
		for i, r := range rows {
			if r.kind == keep.kind && r.category == keep.category && r.position == keep.position {
				a.cursor = i
				a.clampOffset()
				return
			}
		}
	}
	a.clampCursor()
}

func (a *App) clampCursor() {
	if a.cursor >= len(a.rows) {
		a.cursor = len(a.rows) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
	a.clampOffset()
}

func (a *App) listHeight() int {
	h := a.height - chromeHeight
	if h < 1 {
		h = 1
	}
	return h
}

// clampOffset scrolls the list so the cursor stays visible.
func (a *App) clampOffset() {
	h := a.listHeight()
	if a.cursor < a.offset {
		a.offset = a.cursor
	}
	if a.cursor >= a.offset+h {
		a.offset = a.cursor - h + 1
	}
	if a.offset < 0 {
		a.offset = 0
	}
}

func (a *App) selectedRow() (row, bool) {
	if a.cursor < 0 || a.cursor >= len(a.rows) {
		return row{}, false
	}
	return a.rows[a.cursor], true
}

func (a *App) modalSize() (int, int) {
	w := (a.width * 4) / 5
	if w < 20 {
		w = a.width - 2
	}
	h := a.height - chromeHeight - 2
	if h < 3 {
		h = 3
	}
	return w, h
}

func (a *App) View() string {
	var content string

	switch a.view {
	case ViewCategories:
		content = a.viewCategories()
	case ViewJoke:
		content = a.viewJoke()
	case ViewSearch:
		content = a.viewSearch()
	}

	separatorWidth := a.width - 2
	if separatorWidth < 0 {
		separatorWidth = 0
	}
	separator := SeparatorStyle.Render("─" + strings.Repeat("─", separatorWidth))

	return lipgloss.JoinVertical(lipgloss.Top, content, separator, a.getCustomStatusBar())
}

func (a *App) viewCategories() string {
	subtitle := "jokes from " + hostOf(a.config.API.BaseURL)
	if a.coord.Refreshing(a.now()) {
		subtitle = a.spinner.View() + " " + MsgRefreshing
	}
	header := renderHeader(CompactLogo+" categories", subtitle, a.width)

	bodyHeight := a.height - chromeHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	if len(a.rows) == 0 {
		var body string
		switch {
		case a.coord.LoadingCategories():
			body = a.spinner.View() + " " + MsgLoadingCategories
		case a.coord.ListFailure() != nil:
			body = renderFailure("Could not load categories", a.coord.ListFailure(), a.width-4)
		default:
			body = GetWelcomeMessage()
		}
		return lipgloss.JoinVertical(lipgloss.Top, header, renderCentered(a.width, bodyHeight, body))
	}

	end := a.offset + bodyHeight
	if end > len(a.rows) {
		end = len(a.rows)
	}
	lines := make([]string, 0, end-a.offset)
	for i := a.offset; i < end; i++ {
		lines = append(lines, a.renderRow(a.rows[i], i == a.cursor))
	}

	return lipgloss.JoinVertical(
		lipgloss.Top,
		header,
		ContentWrapper(a.width, bodyHeight).Render(strings.Join(lines, "\n")),
	)
}

func (a *App) renderRow(r row, selected bool) string {
	var text string
	switch r.kind {
	case rowCategory:
		marker := "▸"
		if a.expanded[r.category] {
			marker = "▾"
		}
		text = fmt.Sprintf("%s %d. %s", marker, r.number, r.category)
		if selected {
			return SelectedItemStyle.Render(truncateEnd(text, a.width-2)) + a.rowSuffix(r.category)
		}
		return CategoryStyle.Render(truncateEnd(text, a.width-2)) + a.rowSuffix(r.category)

	case rowJoke:
		text = "    • " + truncateEnd(strings.ReplaceAll(r.joke, "\n", " "), a.width-8)
		if selected {
			return SelectedItemStyle.Render(text)
		}
		return JokeStyle.Render(text)

	default:
		switch {
		case a.coord.Pending(r.category):
			text = "    " + a.spinner.View() + " " + MsgLoadingJokes
		case a.coord.Failure(r.category) != nil:
			text = "    ↻ Retry"
		default:
			text = "    + Add More"
		}
		if selected {
			return SelectedItemStyle.Render(text)
		}
		return HelpStyle.Render(text)
	}
}

// rowSuffix renders the joke count and fetch state after a category name.
func (a *App) rowSuffix(name string) string {
	var parts []string
	if badge := renderCount(a.coord.Index().Count(name)); badge != "" {
		parts = append(parts, badge)
	}
	if a.coord.Pending(name) {
		parts = append(parts, a.spinner.View())
	}
	if a.coord.Failure(name) != nil {
		parts = append(parts, ErrorMessageStyle.Render("✗"))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

func (a *App) viewJoke() string {
	if a.currentJoke == nil {
		return ""
	}
	title := fmt.Sprintf("› %s #%d", a.currentJoke.category, a.currentJoke.position+1)
	modal := ModalStyle.Render(lipgloss.JoinVertical(
		lipgloss.Top,
		HeaderStyle.Render(title),
		a.viewport.View(),
	))
	return renderCentered(a.width, a.height-2, modal)
}

func (a *App) viewSearch() string {
	searchInputWidth := a.width - 8
	if searchInputWidth < 10 {
		searchInputWidth = a.width - 4
	}
	a.searchInput.Width = searchInputWidth

	helpText := ""
	if a.searchInput.Focused() {
		helpText = "Type to search • Tab/↓: results • Esc: back"
	} else if len(a.searchList.Items()) > 0 {
		helpText = "↑↓: navigate • Enter: open • Tab: search box • Esc: back"
	} else {
		helpText = "No results found • Tab: search box • Esc: back"
	}

	searchContent := lipgloss.JoinVertical(
		lipgloss.Top,
		renderHeader(CompactLogo+" search", "", a.width),
		"",
		renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), searchInputWidth),
		renderMuted(helpText),
		"",
		a.searchList.View(),
	)

	return ContentWrapper(a.width, a.height-2).Render(searchContent)
}

func (a *App) getCustomStatusBar() string {
	if a.err != nil {
		return StatusBarStyle.Width(a.width).Render(ErrorMessageStyle.Render(fmt.Sprintf("✗ %v", a.err)))
	}

	line := strings.Join(a.keyHandler.GetHelpForCurrentView(), " • ")
	if a.status != "" {
		line = a.statusKind.style().Render(a.status) + renderMuted(" │ ") + line
	}
	return StatusBarStyle.Width(a.width).MaxHeight(1).Render(line)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

type searchHitItem struct {
	hit search.Hit
}

// Title shows the matched snippet, falling back to the joke's opening.
func (i searchHitItem) Title() string {
	text := i.hit.Snippet
	if text == "" {
		text = i.hit.Joke
	}
	return truncateEnd(strings.ReplaceAll(text, "\n", " "), 80)
}

func (i searchHitItem) Description() string {
	return lipgloss.NewStyle().
		Foreground(MutedColor).
		Render(fmt.Sprintf("%s • #%d", i.hit.Category, i.hit.Position+1))
}

func (i searchHitItem) FilterValue() string { return i.hit.Joke }

type fetchDoneMsg struct {
	result coord.Result
}

type refreshTickMsg struct{}

type jokeRenderedMsg struct {
	content string
}

type searchResultsMsg struct {
	query string
	hits  []search.Hit
	err   error
}

type errorMsg struct {
	err error
}
