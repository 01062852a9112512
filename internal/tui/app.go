// Package tui is the interactive browser over the saved-tab library:
// domain groups on top, incremental relevance search behind "/".
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lotas/tabvault/internal/bridge"
	"github.com/lotas/tabvault/internal/registry"
	"github.com/lotas/tabvault/internal/search"
	"github.com/lotas/tabvault/internal/storage"
	"github.com/lotas/tabvault/internal/types"
)

// --- Messages ---

type loadedMsg struct {
	tabs     []types.Tab
	labels   []types.Label
	settings types.Settings
	err      error
}

type actionDoneMsg struct {
	status string
	err    error
}

type extensionMsg struct {
	msg bridge.IncomingMsg
	ok  bool
}

// --- Model ---

type Model struct {
	store *storage.Manager
	reg   *registry.Registry
	srv   *bridge.Server // nil when the bridge is not running

	// Data
	tabs      []types.Tab
	labels    []types.Label
	collapsed map[string]bool

	// UI state
	rows        []row
	cursor      int
	searching   bool
	query       string
	labelFilter string // label ID, empty for all
	status      string
	err         error
	width       int
	height      int
}

// NewModel creates the TUI model. srv may be nil (offline mode).
func NewModel(store *storage.Manager, reg *registry.Registry, srv *bridge.Server) Model {
	return Model{
		store:     store,
		reg:       reg,
		srv:       srv,
		collapsed: make(map[string]bool),
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.load()}
	if m.srv != nil {
		cmds = append(cmds, m.waitForExtension())
	}
	return tea.Batch(cmds...)
}

// --- Commands ---

func (m Model) load() tea.Cmd {
	store, reg := m.store, m.reg
	return func() tea.Msg {
		tabs, err := reg.AllTabs()
		if err != nil {
			return loadedMsg{err: err}
		}
		labels, err := store.AllLabels()
		if err != nil {
			return loadedMsg{err: err}
		}
		settings, err := store.Settings()
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{tabs: tabs, labels: labels, settings: settings}
	}
}

func (m Model) waitForExtension() tea.Cmd {
	srv := m.srv
	return func() tea.Msg {
		msg, ok := <-srv.Messages()
		return extensionMsg{msg: msg, ok: ok}
	}
}

func (m Model) openTab(id string) tea.Cmd {
	reg := m.reg
	return func() tea.Msg {
		tab, err := reg.OpenTab(id, false)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		if tab == nil {
			return actionDoneMsg{status: "tab gone"}
		}
		return actionDoneMsg{status: "opened " + tab.DisplayTitle()}
	}
}

func (m Model) deleteTab(id string) tea.Cmd {
	reg := m.reg
	return func() tea.Msg {
		if err := reg.DeleteTab(id); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: "deleted"}
	}
}

func (m Model) deleteDomain(dom string) tea.Cmd {
	reg := m.reg
	return func() tea.Msg {
		n, err := reg.DeleteAllInDomain(dom)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: fmt.Sprintf("deleted %d tabs in %s", n, dom)}
	}
}

func (m Model) openDomain(dom string) tea.Cmd {
	reg := m.reg
	return func() tea.Msg {
		n, err := reg.OpenAllInDomain(dom)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: fmt.Sprintf("opened %d tabs in %s", n, dom)}
	}
}

// persistCollapsed mirrors the collapse state into settings so it survives
// restarts.
func (m Model) persistCollapsed() tea.Cmd {
	store := m.store
	state := make(map[string]bool, len(m.collapsed))
	for k, v := range m.collapsed {
		state[k] = v
	}
	return func() tea.Msg {
		_, err := store.UpdateSettings(storage.SettingsPatch{GroupsCollapsed: state})
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return nil
	}
}

func (m Model) saveFromExtension(req *bridge.SaveRequest) tea.Cmd {
	reg := m.reg
	r := *req
	return func() tea.Msg {
		saved, err := reg.IsURLSaved(r.URL)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		if saved {
			return actionDoneMsg{status: "already saved: " + r.URL}
		}
		tab, err := reg.SaveTab(registry.Draft{
			URL:     r.URL,
			Title:   r.Title,
			Favicon: r.FavIconURL,
		})
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: "saved " + tab.DisplayTitle()}
	}
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.tabs = msg.tabs
		m.labels = msg.labels
		for d, c := range msg.settings.GroupsCollapsed {
			if _, ok := m.collapsed[d]; !ok {
				m.collapsed[d] = c
			}
		}
		m.rebuildRows()
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if msg.status != "" {
			m.status = msg.status
		}
		return m, m.load()

	case extensionMsg:
		if !msg.ok {
			return m, nil
		}
		cmds := []tea.Cmd{m.waitForExtension()}
		if msg.msg.Type == "saveTab" {
			if req, err := bridge.ParseSaveRequest(msg.msg); err == nil {
				cmds = append(cmds, m.saveFromExtension(req))
			}
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.Type {
		case tea.KeyEsc:
			m.searching = false
			m.query = ""
			m.rebuildRows()
			return m, nil
		case tea.KeyEnter:
			m.searching = false
			return m, nil
		case tea.KeyBackspace:
			if len(m.query) > 0 {
				runes := []rune(m.query)
				m.query = string(runes[:len(runes)-1])
			}
			m.rebuildRows()
			return m, nil
		case tea.KeyRunes:
			m.query += string(msg.Runes)
			m.rebuildRows()
			return m, nil
		case tea.KeySpace:
			m.query += " "
			m.rebuildRows()
			return m, nil
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}

	case "/":
		m.searching = true
		m.query = ""
		m.rebuildRows()

	case "esc":
		if m.query != "" {
			m.query = ""
			m.rebuildRows()
		}

	case "r":
		return m, m.load()

	case "l":
		m.labelFilter = m.nextLabelFilter()
		m.rebuildRows()

	case " ":
		if r := m.current(); r != nil && r.isGroup {
			m.collapsed[r.domain] = !m.collapsed[r.domain]
			m.rebuildRows()
			return m, m.persistCollapsed()
		}

	case "enter":
		if r := m.current(); r != nil {
			if r.isGroup {
				m.collapsed[r.domain] = !m.collapsed[r.domain]
				m.rebuildRows()
				return m, m.persistCollapsed()
			}
			return m, m.openTab(r.tab.ID)
		}

	case "o":
		if r := m.current(); r != nil {
			if r.isGroup {
				return m, m.openDomain(r.domain)
			}
			return m, m.openTab(r.tab.ID)
		}

	case "d":
		if r := m.current(); r != nil {
			if r.isGroup {
				return m, m.deleteDomain(r.domain)
			}
			return m, m.deleteTab(r.tab.ID)
		}
	}
	return m, nil
}

// nextLabelFilter cycles all -> first label -> ... -> last label -> all.
func (m Model) nextLabelFilter() string {
	if len(m.labels) == 0 {
		return ""
	}
	if m.labelFilter == "" {
		return m.labels[0].ID
	}
	for i, l := range m.labels {
		if l.ID == m.labelFilter && i+1 < len(m.labels) {
			return m.labels[i+1].ID
		}
	}
	return ""
}

func (m Model) filteredTabs() []types.Tab {
	if m.labelFilter == "" {
		return m.tabs
	}
	var kept []types.Tab
	for _, tab := range m.tabs {
		if tab.HasLabel(m.labelFilter) {
			kept = append(kept, tab)
		}
	}
	return kept
}

func (m *Model) current() *row {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return &m.rows[m.cursor]
}

// rebuildRows recomputes the visible rows from tabs, collapse state, and
// the active query. Searching flattens the tree into a ranked list.
func (m *Model) rebuildRows() {
	m.rows = m.rows[:0]
	tabs := m.filteredTabs()

	if m.query != "" {
		for _, tab := range search.Rank(tabs, m.query) {
			m.rows = append(m.rows, row{tab: tab})
		}
	} else {
		for _, g := range sortedGroups(tabs) {
			m.rows = append(m.rows, row{isGroup: true, domain: g.Domain, group: g})
			if m.collapsed[g.Domain] {
				continue
			}
			for _, tab := range g.Tabs {
				m.rows = append(m.rows, row{tab: tab, domain: g.Domain})
			}
		}
	}

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
