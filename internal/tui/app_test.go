package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lotas/tabvault/internal/types"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press runs one key through the model and returns the updated model.
func press(t *testing.T, m Model, msg tea.KeyMsg) Model {
	t.Helper()
	updated, _ := m.handleKey(msg)
	return updated.(Model)
}

func testModel() Model {
	m := NewModel(nil, nil, nil)
	m.tabs = []types.Tab{
		{ID: "a", Title: "go tools", URL: "https://go.dev/tools", Domain: "go.dev", DateAdded: 2},
		{ID: "b", Title: "cooking", URL: "https://food.example", Domain: "food.example", DateAdded: 1},
	}
	m.rebuildRows()
	return m
}

func TestSearchInput(t *testing.T) {
	m := testModel()

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	if !m.searching {
		t.Fatal("/ must enter search mode")
	}

	m = press(t, m, keyRunes("go"))
	// bubbletea delivers the space bar as KeySpace with Runes{' '}; exactly
	// one space must land in the query.
	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if m.query != "go " {
		t.Fatalf("query after one space press = %q, want %q", m.query, "go ")
	}
	m = press(t, m, keyRunes("tools"))
	if m.query != "go tools" {
		t.Fatalf("query = %q, want %q", m.query, "go tools")
	}

	// The multi-word query matches the multi-word title.
	if len(m.rows) != 1 || m.rows[0].tab.ID != "a" {
		t.Errorf("rows = %v, want the go tools tab only", m.rows)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	if m.query != "go tool" {
		t.Errorf("query after backspace = %q", m.query)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.searching || m.query != "" {
		t.Errorf("esc must leave search mode and clear the query, got searching=%v query=%q", m.searching, m.query)
	}
	if len(m.rows) == 0 {
		t.Error("rows not rebuilt after clearing the query")
	}
}

func TestSearchEnterKeepsQuery(t *testing.T) {
	m := testModel()
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	m = press(t, m, keyRunes("cooking"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.searching {
		t.Error("enter must leave input mode")
	}
	if m.query != "cooking" {
		t.Errorf("enter must keep the query, got %q", m.query)
	}
	if len(m.rows) != 1 || m.rows[0].tab.ID != "b" {
		t.Errorf("filtered rows lost after enter: %v", m.rows)
	}
}

func TestLabelFilterCycle(t *testing.T) {
	m := testModel()
	m.labels = []types.Label{
		{ID: "work", Name: "Work"},
		{ID: "later", Name: "Read Later"},
	}
	m.tabs[0].Labels = []string{"work"}

	m = press(t, m, keyRunes("l"))
	if m.labelFilter != "work" {
		t.Fatalf("first cycle = %q, want work", m.labelFilter)
	}
	// Only the labeled tab remains: its group header plus the tab row.
	if len(m.rows) != 2 || m.rows[1].tab.ID != "a" {
		t.Errorf("filtered rows = %v", m.rows)
	}

	m = press(t, m, keyRunes("l"))
	if m.labelFilter != "later" {
		t.Errorf("second cycle = %q, want later", m.labelFilter)
	}
	m = press(t, m, keyRunes("l"))
	if m.labelFilter != "" {
		t.Errorf("cycle must wrap back to all, got %q", m.labelFilter)
	}
}
