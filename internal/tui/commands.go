package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/quip/internal/coord"
)

// searchLimit caps the number of hits shown in the search view.
const searchLimit = 50

// execute runs req off the update loop and reports back with a fetchDoneMsg.
func (a *App) execute(req *coord.Request) tea.Cmd {
	if req == nil {
		return nil
	}
	ctx, c := a.ctx, a.coord
	return func() tea.Msg {
		return fetchDoneMsg{result: c.Execute(ctx, req)}
	}
}

func (a *App) loadCategories() tea.Cmd {
	req, ok := a.coord.BeginLoadCategories()
	if !ok {
		return nil
	}
	a.setStatus(MsgLoadingCategories, StatusInfo)
	return tea.Batch(a.startSpinner(), a.execute(req))
}

// expand toggles a category open or closed. The first opening in a
// generation triggers the automatic load.
func (a *App) expand(name string) tea.Cmd {
	a.expanded[name] = !a.expanded[name]
	defer a.rebuildRows()

	if !a.expanded[name] {
		return nil
	}
	req, ok := a.coord.Expand(name)
	if !ok {
		return nil
	}
	return tea.Batch(a.startSpinner(), a.execute(req))
}

// loadMore is the "Add More" action.
func (a *App) loadMore(name string) tea.Cmd {
	req, ok := a.coord.RequestMore(name)
	if !ok {
		switch {
		case a.coord.Pending(name):
			a.setStatus(MsgAlreadyLoading, StatusWarn)
		case a.coord.Index().Count(name) >= a.coord.Options().MaxJokes:
			a.setStatus(MsgMaxReached, StatusInfo)
		}
		return nil
	}
	a.expanded[name] = true
	a.rebuildRows()
	return tea.Batch(a.startSpinner(), a.execute(req))
}

// goTop moves name to the head of the list and toggles its expansion.
func (a *App) goTop(name string) tea.Cmd {
	a.coord.MoveToFront(name)
	cmd := a.expand(name)
	a.cursor = 0
	a.offset = 0
	return cmd
}

func (a *App) refresh() tea.Cmd {
	req := a.coord.BeginRefresh()
	a.expanded = make(map[string]bool)
	a.cursor = 0
	a.offset = 0
	a.err = nil
	a.rebuildRows()
	a.setStatus(MsgRefreshing, StatusInfo)

	floor := a.coord.Options().RefreshFloor
	return tea.Batch(
		a.startSpinner(),
		a.execute(req),
		tea.Tick(floor, func(time.Time) tea.Msg { return refreshTickMsg{} }),
	)
}

func (a *App) openJoke(r row) tea.Cmd {
	selected := r
	a.currentJoke = &selected
	a.previousView = a.view
	a.view = ViewJoke
	a.viewport.SetContent(renderMuted("…"))
	return a.renderJoke(selected)
}

// renderJoke picks the renderer on the update loop and renders off it.
func (a *App) renderJoke(r row) tea.Cmd {
	renderer, err := a.getRenderer()
	if err != nil {
		return func() tea.Msg { return errorMsg{err: fmt.Errorf("initializing renderer: %w", err)} }
	}

	return func() tea.Msg {
		var content strings.Builder
		content.WriteString(fmt.Sprintf("## %s\n\n", r.category))
		for _, line := range strings.Split(r.joke, "\n") {
			content.WriteString("> " + line + "\n")
		}

		rendered, err := renderer.Render(content.String())
		if err != nil {
			return jokeRenderedMsg{content: r.joke}
		}
		return jokeRenderedMsg{content: rendered}
	}
}

func (a *App) performSearch(query string) tea.Cmd {
	searcher := a.searcher
	return func() tea.Msg {
		if searcher == nil {
			return searchResultsMsg{query: query}
		}
		hits, err := searcher.Search(query, searchLimit)
		if err != nil {
			return searchResultsMsg{query: query, err: fmt.Errorf("search: %w", err)}
		}
		return searchResultsMsg{query: query, hits: hits}
	}
}
