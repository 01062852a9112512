package portability

import (
	"fmt"
	"strings"
	"time"

	"github.com/lotas/tabvault/internal/domain"
	"github.com/lotas/tabvault/internal/types"
)

// Markdown renders the tab collection as a markdown document, one section
// per domain group, largest group first.
func Markdown(tabs []types.Tab) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Saved Tabs\n")
	fmt.Fprintf(&b, "> Exported %s\n", time.Now().Format("2006-01-02 15:04"))

	for _, g := range domain.SortedGroups(tabs) {
		noun := "tabs"
		if g.Count == 1 {
			noun = "tab"
		}
		fmt.Fprintf(&b, "\n## %s (%d %s)\n\n", g.DisplayName, g.Count, noun)

		for _, tab := range g.Tabs {
			fmt.Fprintf(&b, "- [%s](%s) — %s\n", tab.DisplayTitle(), tab.URL, relativeTime(tab.DateAdded))
		}
	}

	return b.String()
}

func relativeTime(epochMillis int64) string {
	d := time.Since(time.UnixMilli(epochMillis))
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
