package registry

import (
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://a.com/page#section", "https://a.com/page"},
		{"https://a.com/page?b=2&a=1", "https://a.com/page?a=1&b=2"},
		{"https://a.com/page/", "https://a.com/page"},
		{"https://a.com/", "https://a.com/"}, // bare host keeps its slash
		{"https://a.com/page", "https://a.com/page"},
		{"://not a url", "://not a url"},
	}
	for _, tt := range tests {
		if got := NormalizeURL(tt.in); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	urls := []string{
		"https://a.com/page?b=2&a=1#frag",
		"https://a.com/",
		"https://a.com/deep/path/",
	}
	for _, u := range urls {
		once := NormalizeURL(u)
		twice := NormalizeURL(once)
		if once != twice {
			t.Errorf("NormalizeURL not idempotent for %q: %q vs %q", u, once, twice)
		}
	}
}

func TestDuplicates(t *testing.T) {
	r := testRegistry(t, nil)
	r.SaveTab(Draft{URL: "https://a.com/page?utm=x#top", Title: "first"})
	r.SaveTab(Draft{URL: "https://b.com/unique"})
	r.SaveTab(Draft{URL: "https://a.com/page?utm=x", Title: "second"})

	groups, err := r.Duplicates()
	if err != nil {
		t.Fatalf("Duplicates: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 duplicate group, got %d", len(groups))
	}
	g := groups[0]
	if g.URL != "https://a.com/page?utm=x" {
		t.Errorf("group URL = %q", g.URL)
	}
	if len(g.Tabs) != 2 {
		t.Fatalf("expected 2 members, got %d", len(g.Tabs))
	}
	// Collection order preserved.
	if g.Tabs[0].Title != "first" || g.Tabs[1].Title != "second" {
		t.Errorf("member order: %q, %q", g.Tabs[0].Title, g.Tabs[1].Title)
	}
}

func TestDuplicatesNone(t *testing.T) {
	r := testRegistry(t, nil)
	r.SaveTab(Draft{URL: "https://a.com/x"})
	r.SaveTab(Draft{URL: "https://a.com/y"})

	groups, err := r.Duplicates()
	if err != nil {
		t.Fatalf("Duplicates: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("expected no groups, got %d", len(groups))
	}
}
