package domain

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/lotas/tabvault/internal/types"
)

// FallbackDomain is used for URLs that cannot be parsed into a hostname.
const FallbackDomain = "other"

// displayNames maps well-known hosts to friendly brand names.
var displayNames = map[string]string{
	"github.com":           "GitHub",
	"www.github.com":       "GitHub",
	"gitlab.com":           "GitLab",
	"stackoverflow.com":    "Stack Overflow",
	"news.ycombinator.com": "Hacker News",
	"www.youtube.com":      "YouTube",
	"youtube.com":          "YouTube",
	"www.google.com":       "Google",
	"google.com":           "Google",
	"www.reddit.com":       "Reddit",
	"reddit.com":           "Reddit",
	"twitter.com":          "Twitter",
	"x.com":                "X",
	"www.linkedin.com":     "LinkedIn",
	"linkedin.com":         "LinkedIn",
	"medium.com":           "Medium",
	"dev.to":               "DEV",
	"www.wikipedia.org":    "Wikipedia",
	"en.wikipedia.org":     "Wikipedia",
	"www.amazon.com":       "Amazon",
	"amazon.com":           "Amazon",
	"www.netflix.com":      "Netflix",
	"mail.google.com":      "Gmail",
	"docs.google.com":      "Google Docs",
	"other":                "Other",
}

// Extract parses rawURL and returns its hostname. Malformed or relative URLs
// yield FallbackDomain rather than an error, so callers never branch on
// parse failures.
func Extract(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return FallbackDomain
	}
	return u.Hostname()
}

// DisplayName returns a human-friendly name for a domain. Known hosts come
// from a fixed table; anything else gets a leading "www." stripped and its
// first dot-segment title-cased. Multi-level subdomains collapse to their
// leftmost component ("blog.example.org" -> "Blog").
func DisplayName(domain string) string {
	if name, ok := displayNames[domain]; ok {
		return name
	}
	d := strings.TrimPrefix(domain, "www.")
	first, _, _ := strings.Cut(d, ".")
	if first == "" {
		return domain
	}
	return strings.ToUpper(first[:1]) + first[1:]
}

// FaviconURL returns a favicon-service URL for the domain. Pure string
// formatting, no network call.
func FaviconURL(domain string) string {
	return fmt.Sprintf("https://www.google.com/s2/favicons?domain=%s&sz=32", domain)
}

// GroupByDomain partitions tabs by their stored Domain field, falling back
// to Extract(tab.URL) when the field is empty. Within each group, tabs are
// ordered newest first (DateAdded descending, stable on ties).
func GroupByDomain(tabs []types.Tab) map[string][]types.Tab {
	groups, _ := groupWithOrder(tabs)
	return groups
}

// groupWithOrder also returns group keys in first-seen order, which the
// sorted view uses as the tie-break between equal-sized groups.
func groupWithOrder(tabs []types.Tab) (map[string][]types.Tab, []string) {
	groups := make(map[string][]types.Tab)
	var order []string
	for _, tab := range tabs {
		d := tab.Domain
		if d == "" {
			d = Extract(tab.URL)
		}
		if _, seen := groups[d]; !seen {
			order = append(order, d)
		}
		groups[d] = append(groups[d], tab)
	}
	for _, d := range order {
		g := groups[d]
		sort.SliceStable(g, func(i, j int) bool {
			return g[i].DateAdded > g[j].DateAdded
		})
	}
	return groups, order
}

// SortedGroups groups tabs by domain and orders the groups by descending tab
// count. Groups with equal counts keep the order their domains were first
// encountered in the input.
func SortedGroups(tabs []types.Tab) []types.DomainGroup {
	groups, order := groupWithOrder(tabs)

	result := make([]types.DomainGroup, 0, len(order))
	for _, d := range order {
		result = append(result, types.DomainGroup{
			Domain:      d,
			DisplayName: DisplayName(d),
			Tabs:        groups[d],
			Count:       len(groups[d]),
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	return result
}
