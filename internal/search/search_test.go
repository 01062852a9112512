package search

import (
	"testing"

	"github.com/lotas/tabvault/internal/types"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  Hello  ", "hello"},
		{"Café", "cafe"},
		{"ÜBER straße", "uber straße"}, // ß is not a combining mark
		{"résumé", "resume"},
		{"MiXeD", "mixed"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFilterEmptyQuery(t *testing.T) {
	tabs := []types.Tab{{ID: "a"}, {ID: "b"}}
	for _, q := range []string{"", "   ", "\t"} {
		got := Filter(tabs, q)
		if len(got) != 2 {
			t.Errorf("Filter with query %q: expected input unchanged, got %d tabs", q, len(got))
		}
	}
}

func TestMatchesFields(t *testing.T) {
	tab := types.Tab{
		Title:       "Go Proposal Review",
		Description: "weekly triage notes",
		URL:         "https://github.com/golang/go/issues",
		Domain:      "github.com",
		Labels:      []string{"work", "later"},
	}

	for _, q := range []string{"proposal", "triage", "golang", "github", "later"} {
		if !Matches(&tab, Normalize(q)) {
			t.Errorf("expected query %q to match", q)
		}
	}
	if Matches(&tab, Normalize("bicycle")) {
		t.Error("expected no match for unrelated query")
	}
}

func TestMatchesLabelIDsNotNames(t *testing.T) {
	// Search sees label IDs, not display names.
	tab := types.Tab{Title: "x", URL: "https://a.com", Domain: "a.com", Labels: []string{"f47ac10b"}}
	if !Matches(&tab, "f47ac10b") {
		t.Error("expected label id to be searchable")
	}
}

func TestRankOrdering(t *testing.T) {
	tabs := []types.Tab{
		{ID: "url-only", Title: "Some Page", URL: "https://digital.com/git-tools", Domain: "digital.com"},
		{ID: "title", Title: "GitHub", URL: "https://example.net", Domain: "example.net"},
	}

	got := Rank(tabs, "git")
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	// Title match (10) outranks url-only match (2) regardless of input order.
	if got[0].ID != "title" || got[1].ID != "url-only" {
		t.Errorf("wrong order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestRankExcludesNonMatches(t *testing.T) {
	tabs := []types.Tab{
		{ID: "hit", Title: "Kubernetes", URL: "https://k8s.io", Domain: "k8s.io"},
		{ID: "miss", Title: "Cooking", URL: "https://food.example", Domain: "food.example"},
	}
	got := Rank(tabs, "kubernetes")
	if len(got) != 1 || got[0].ID != "hit" {
		t.Fatalf("expected only the matching tab, got %d results", len(got))
	}
}

func TestRankStableTies(t *testing.T) {
	tabs := []types.Tab{
		{ID: "first", Title: "gopher news", Domain: "a.com", URL: "https://a.com"},
		{ID: "second", Title: "gopher daily", Domain: "b.com", URL: "https://b.com"},
	}
	got := Rank(tabs, "gopher")
	if got[0].ID != "first" || got[1].ID != "second" {
		t.Errorf("equal scores must keep input order, got %s then %s", got[0].ID, got[1].ID)
	}
}

func TestRankAdditiveScore(t *testing.T) {
	tab := types.Tab{
		Title:  "github tricks",
		Domain: "github.com",
		URL:    "https://github.com/tricks",
	}
	// title 10 + domain 8 + url 2
	if got := Score(&tab, "github"); got != 20 {
		t.Errorf("Score = %d, want 20", got)
	}
}

func TestHighlight(t *testing.T) {
	got := Highlight("GitHub is on github.com", "github")
	want := "<mark>GitHub</mark> is on <mark>github</mark>.com"
	if got != want {
		t.Errorf("Highlight = %q, want %q", got, want)
	}

	if got := Highlight("anything", ""); got != "anything" {
		t.Errorf("empty query must return text unchanged, got %q", got)
	}
}

func TestHighlightNormalizedPatternLimitation(t *testing.T) {
	// The pattern is built from the normalized query but matched against
	// the original text, so accented source text is not highlighted.
	got := Highlight("Café notes", "café")
	if got != "Café notes" {
		t.Errorf("accented source text should be left unmarked, got %q", got)
	}
}
