package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/quip/internal/config"
	"github.com/pders01/quip/internal/search"
)

type KeyHandler struct {
	app         *App
	config      *config.Config
	keys        config.KeyBindings
	modifierKey string
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	modifierKey := cfg.Keys.Modifier + "+"
	return &KeyHandler{app: app, config: cfg, keys: cfg.Keys.Bindings, modifierKey: modifierKey}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(key); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	return kh.app.view == ViewSearch && kh.app.searchInput.Focused()
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return kh.navigateBack()
	case "ctrl+c":
		return kh.app, tea.Quit
	case "enter":
		// Open the first result if available
		if items := kh.app.searchList.Items(); len(items) > 0 {
			if i, ok := items[0].(searchHitItem); ok {
				return kh.selectSearchHit(i)
			}
		}
		return kh.app, nil
	case "tab", "down":
		if len(kh.app.searchList.Items()) > 0 {
			kh.app.searchInput.Blur()
			kh.app.searchList.Select(0)
		}
		return kh.app, nil
	default:
		return kh.delegateToTextInput(msg)
	}
}

// delegateToTextInput passes the key to the search input and searches when
// the query changed.
func (kh *KeyHandler) delegateToTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	prev := sanitizeSearchInput(kh.app.searchInput.Value())
	newSearchInput, cmd := kh.app.searchInput.Update(msg)
	kh.app.searchInput = newSearchInput

	query := sanitizeSearchInput(kh.app.searchInput.Value())
	if query == prev {
		return kh.app, cmd
	}
	if len(query) < 2 {
		kh.app.searchList.SetItems([]list.Item{})
		return kh.app, cmd
	}
	return kh.app, tea.Batch(cmd, kh.app.performSearch(query))
}

// handleCustomKeys handles only our custom action keys
func (kh *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	// Global custom keys
	switch key {
	case "ctrl+c", kh.keys.Quit:
		return kh.app, tea.Quit, true
	case kh.keys.Back:
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case kh.keys.Help:
		kh.app.showHelp = !kh.app.showHelp
		return kh.app, nil, true
	case kh.keys.Search, kh.modifierKey + "s":
		if kh.app.view != ViewSearch {
			model, cmd := kh.enterSearchMode()
			return model, cmd, true
		}
	}

	if kh.app.view == ViewCategories {
		return kh.handleCategoriesCustomKeys(key)
	}
	return kh.app, nil, false
}

// handleCategoriesCustomKeys handles the list actions
func (kh *KeyHandler) handleCategoriesCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	app := kh.app

	switch key {
	case "up", "k":
		if app.cursor > 0 {
			app.cursor--
			app.clampOffset()
		}
		return app, nil, true
	case "down", "j":
		if app.cursor < len(app.rows)-1 {
			app.cursor++
			app.clampOffset()
		}
		return app, nil, true
	case "home", "g":
		app.cursor = 0
		app.clampOffset()
		return app, nil, true
	case "end", "G":
		app.cursor = len(app.rows) - 1
		app.clampCursor()
		return app, nil, true
	case kh.keys.Refresh, kh.modifierKey + "r":
		return app, app.refresh(), true
	}

	r, ok := app.selectedRow()
	if !ok {
		// Empty list: enter retries the category load
		if key == kh.keys.Expand {
			return app, app.loadCategories(), true
		}
		return app, nil, false
	}

	switch key {
	case kh.keys.Expand, " ":
		return app, kh.activate(r), true
	case kh.keys.AddMore:
		return app, app.loadMore(r.category), true
	case kh.keys.GoTop:
		return app, app.goTop(r.category), true
	}
	return app, nil, false
}

func (kh *KeyHandler) activate(r row) tea.Cmd {
	switch r.kind {
	case rowCategory:
		return kh.app.expand(r.category)
	case rowJoke:
		return kh.app.openJoke(r)
	default:
		return kh.app.loadMore(r.category)
	}
}

// delegateToCharm lets Charm handle all keys we don't intercept
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch kh.app.view {
	case ViewJoke:
		kh.app.viewport, cmd = kh.app.viewport.Update(msg)
		return kh.app, cmd

	case ViewSearch:
		switch msg.String() {
		case "tab", "shift+tab", "/", "i":
			kh.app.searchInput.Focus()
			return kh.app, nil
		case "up":
			if kh.app.searchList.Index() == 0 {
				kh.app.searchInput.Focus()
				return kh.app, nil
			}
		}

		kh.app.searchList, cmd = kh.app.searchList.Update(msg)
		if msg.String() == "enter" {
			if i, ok := kh.app.searchList.SelectedItem().(searchHitItem); ok {
				return kh.selectSearchHit(i)
			}
		}
		return kh.app, cmd

	default:
		return kh.app, nil
	}
}

func (kh *KeyHandler) selectSearchHit(i searchHitItem) (tea.Model, tea.Cmd) {
	r := row{
		kind:     rowJoke,
		category: i.hit.Category,
		joke:     i.hit.Joke,
		position: i.hit.Position,
	}
	kh.app.searchInput.Blur()
	return kh.app, kh.app.openJoke(r)
}

func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	kh.app.err = nil

	switch kh.app.view {
	case ViewJoke:
		kh.app.view = kh.app.previousView
		kh.app.currentJoke = nil
		if kh.app.view == ViewSearch {
			// Land on the results list for quick navigation
			kh.app.searchInput.Blur()
		}
		return kh.app, nil

	case ViewSearch:
		kh.app.view = ViewCategories
		kh.app.previousView = ViewCategories
		kh.app.searchInput.Reset()
		kh.app.searchInput.Blur()
		kh.app.searchList.SetItems([]list.Item{})
		kh.app.setStatus("", StatusInfo)
		return kh.app, nil

	default:
		// Collapse everything on the list view
		if len(kh.app.expanded) > 0 {
			for name := range kh.app.expanded {
				kh.app.expanded[name] = false
			}
			kh.app.rebuildRows()
		}
		return kh.app, nil
	}
}

// enterSearchMode transitions to search view
func (kh *KeyHandler) enterSearchMode() (tea.Model, tea.Cmd) {
	kh.app.previousView = ViewCategories
	kh.app.view = ViewSearch
	kh.app.currentJoke = nil
	kh.app.searchInput.Reset()
	kh.app.searchList.SetItems([]list.Item{})

	if kh.app.searcher == nil {
		kh.app.setStatus("Search is unavailable", StatusWarn)
		return kh.app, nil
	}
	cmd := kh.app.searchInput.Focus()

	if ds, ok := kh.app.searcher.(search.DebugStatser); ok {
		if n, err := ds.DocCount(); err == nil {
			kh.app.setStatus(MsgSearchIndex(n), StatusInfo)
			return kh.app, cmd
		}
	}
	kh.app.setStatus("Search", StatusInfo)
	return kh.app, cmd
}

// sanitizeSearchInput sanitizes and limits search input length
func sanitizeSearchInput(input string) string {
	input = strings.TrimSpace(input)

	if len(input) > 256 {
		input = input[:256]
	}

	input = strings.ReplaceAll(input, "\n", " ")
	input = strings.ReplaceAll(input, "\r", " ")
	input = strings.ReplaceAll(input, "\t", " ")

	for strings.Contains(input, "  ") {
		input = strings.ReplaceAll(input, "  ", " ")
	}

	return strings.TrimSpace(input)
}

// GetHelpForCurrentView returns the key hints for the status bar. The long
// form is shown after pressing the help key.
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	k := kh.keys
	switch kh.app.view {
	case ViewCategories:
		help := []string{k.Expand + ": open", k.AddMore + ": add more", k.GoTop + ": go top", k.Refresh + ": refresh"}
		if kh.app.showHelp {
			help = append(help, k.Search+": search", k.Back+": collapse", "↑↓/jk: move", k.Quit+": quit")
		} else {
			help = append(help, fmt.Sprintf("%s: more", k.Help))
		}
		return help

	case ViewJoke:
		return []string{k.Back + ": close", "↑↓: scroll"}

	case ViewSearch:
		return []string{"enter: open", k.Back + ": back"}

	default:
		return []string{}
	}
}
