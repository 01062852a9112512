package domain

import (
	"testing"

	"github.com/lotas/tabvault/internal/types"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/golang/go", "github.com"},
		{"https://www.example.com/path?q=1", "www.example.com"},
		{"http://localhost:8080/admin", "localhost"},
		{"not a url at all", "other"},
		{"/relative/path", "other"},
		{"", "other"},
		{"mailto:someone@example.com", "other"},
	}
	for _, tt := range tests {
		if got := Extract(tt.url); got != tt.want {
			t.Errorf("Extract(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestExtractIdempotent(t *testing.T) {
	urls := []string{"https://github.com/x", "garbage", ""}
	for _, u := range urls {
		first := Extract(u)
		second := Extract(u)
		if first != second {
			t.Errorf("Extract(%q) not deterministic: %q vs %q", u, first, second)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		domain string
		want   string
	}{
		{"github.com", "GitHub"},
		{"www.github.com", "GitHub"},
		{"news.ycombinator.com", "Hacker News"},
		{"other", "Other"},
		{"example.com", "Example"},
		{"www.example.com", "Example"},
		// Only the first dot-segment is used: deep subdomains collapse
		// to their leftmost component.
		{"blog.example.org", "Blog"},
		{"docs.internal.corp.net", "Docs"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.domain); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.domain, got, tt.want)
		}
	}
}

func TestFaviconURL(t *testing.T) {
	got := FaviconURL("github.com")
	want := "https://www.google.com/s2/favicons?domain=github.com&sz=32"
	if got != want {
		t.Errorf("FaviconURL = %q, want %q", got, want)
	}
}

func tab(id, url, dom string, added int64) types.Tab {
	return types.Tab{ID: id, URL: url, Domain: dom, DateAdded: added}
}

func TestGroupByDomain(t *testing.T) {
	tabs := []types.Tab{
		tab("a", "https://github.com/a", "github.com", 100),
		tab("b", "https://github.com/b", "github.com", 300),
		tab("c", "https://go.dev/doc", "go.dev", 200),
		// Empty domain field falls back to extraction from the URL.
		tab("d", "https://github.com/d", "", 200),
	}

	groups := GroupByDomain(tabs)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	gh := groups["github.com"]
	if len(gh) != 3 {
		t.Fatalf("expected 3 github tabs, got %d", len(gh))
	}

	// Newest first within the group.
	if gh[0].ID != "b" || gh[1].ID != "d" || gh[2].ID != "a" {
		t.Errorf("wrong in-group order: %s, %s, %s", gh[0].ID, gh[1].ID, gh[2].ID)
	}
}

func TestSortedGroups(t *testing.T) {
	tabs := []types.Tab{
		tab("1", "https://go.dev/a", "go.dev", 1),
		tab("2", "https://github.com/a", "github.com", 2),
		tab("3", "https://github.com/b", "github.com", 3),
		tab("4", "https://example.com/a", "example.com", 4),
	}

	groups := SortedGroups(tabs)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}

	// Largest group first.
	if groups[0].Domain != "github.com" || groups[0].Count != 2 {
		t.Errorf("expected github.com (2) first, got %s (%d)", groups[0].Domain, groups[0].Count)
	}

	// Equal counts keep first-seen order: go.dev appeared before example.com.
	if groups[1].Domain != "go.dev" || groups[2].Domain != "example.com" {
		t.Errorf("tie-break order wrong: %s, %s", groups[1].Domain, groups[2].Domain)
	}

	// Counts add up to the input size.
	total := 0
	for _, g := range groups {
		total += g.Count
		if g.Count != len(g.Tabs) {
			t.Errorf("group %s: Count %d != len(Tabs) %d", g.Domain, g.Count, len(g.Tabs))
		}
	}
	if total != len(tabs) {
		t.Errorf("group counts sum to %d, want %d", total, len(tabs))
	}

	if groups[0].DisplayName != "GitHub" {
		t.Errorf("expected display name GitHub, got %q", groups[0].DisplayName)
	}
}

func TestSortedGroupsEmpty(t *testing.T) {
	if groups := SortedGroups(nil); len(groups) != 0 {
		t.Errorf("expected no groups for empty input, got %d", len(groups))
	}
}
