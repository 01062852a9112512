package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/tabvault/internal/domain"
	"github.com/lotas/tabvault/internal/types"
)

// row is one visible line: a domain group header or a tab.
type row struct {
	isGroup bool
	domain  string
	group   types.DomainGroup
	tab     types.Tab
}

func sortedGroups(tabs []types.Tab) []types.DomainGroup {
	return domain.SortedGroups(tabs)
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	countStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	urlStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("236"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	searchStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("178"))
)

func (m Model) View() string {
	var b strings.Builder

	title := headerStyle.Render("tabvault")
	stats := countStyle.Render(fmt.Sprintf("  %d tabs", len(m.tabs)))
	if m.labelFilter != "" {
		stats += labelStyle.Render("  · label: " + m.labelFilterName())
	}
	if m.srv != nil && m.srv.Connected() {
		stats += countStyle.Render("  · extension connected")
	}
	b.WriteString(title + stats + "\n")

	if m.searching || m.query != "" {
		prompt := "/" + m.query
		if m.searching {
			prompt += "▌"
		}
		b.WriteString(searchStyle.Render(prompt) + "\n")
	}
	b.WriteString("\n")

	if len(m.rows) == 0 {
		if m.query != "" {
			b.WriteString(urlStyle.Render("  no matches") + "\n")
		} else {
			b.WriteString(urlStyle.Render("  no saved tabs — press / to search, q to quit") + "\n")
		}
	}

	visible := m.visibleWindow()
	for i, r := range m.rows {
		if i < visible.start || i >= visible.end {
			continue
		}
		line := m.renderRow(r)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status))
	default:
		b.WriteString(statusStyle.Render("enter open · space collapse · d delete · / search · l label · q quit"))
	}

	return b.String()
}

func (m Model) renderRow(r row) string {
	if r.isGroup {
		marker := "▾"
		if m.collapsed[r.domain] {
			marker = "▸"
		}
		noun := "tabs"
		if r.group.Count == 1 {
			noun = "tab"
		}
		return fmt.Sprintf(" %s %s %s",
			marker,
			headerStyle.Render(r.group.DisplayName),
			countStyle.Render(fmt.Sprintf("(%d %s)", r.group.Count, noun)),
		)
	}

	line := "    " + r.tab.DisplayTitle()
	if len(r.tab.Labels) > 0 {
		line += " " + labelStyle.Render("["+strings.Join(r.tab.Labels, ",")+"]")
	}
	line += " " + urlStyle.Render(truncate(r.tab.URL, 60))
	return line
}

func (m Model) labelFilterName() string {
	for _, l := range m.labels {
		if l.ID == m.labelFilter {
			return l.Name
		}
	}
	return m.labelFilter
}

type window struct{ start, end int }

// visibleWindow keeps the cursor on screen when the list is taller than the
// terminal.
func (m Model) visibleWindow() window {
	avail := m.height - 6
	if avail < 5 {
		avail = 5
	}
	if len(m.rows) <= avail {
		return window{0, len(m.rows)}
	}
	start := m.cursor - avail/2
	if start < 0 {
		start = 0
	}
	end := start + avail
	if end > len(m.rows) {
		end = len(m.rows)
		start = end - avail
	}
	return window{start, end}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
