package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/lotas/tabvault/internal/types"
)

// Relevance weights per matched field. A tab can score on several fields at
// once; the weights are additive.
const (
	weightTitle       = 10
	weightDomain      = 8
	weightLabel       = 6
	weightDescription = 4
	weightURL         = 2
)

// stripMarks removes combining diacritical marks after canonical
// decomposition, so "café" and "cafe" compare equal.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics, and trims the input. Empty input
// normalizes to the empty string.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	stripped, _, err := transform.String(stripMarks, text)
	if err != nil {
		stripped = text
	}
	return strings.TrimSpace(strings.ToLower(stripped))
}

// Matches reports whether the normalized query occurs as a substring of the
// tab's combined searchable text: title, description, url, domain, and label
// IDs. Label IDs, not display names — matching what gets persisted on the tab.
func Matches(tab *types.Tab, normalizedQuery string) bool {
	parts := []string{tab.Title, tab.Description, tab.URL, tab.Domain}
	parts = append(parts, tab.Labels...)
	haystack := Normalize(strings.Join(parts, " "))
	return strings.Contains(haystack, normalizedQuery)
}

// Filter returns the tabs matching the query. An empty or whitespace-only
// query returns the input unchanged.
func Filter(tabs []types.Tab, query string) []types.Tab {
	q := Normalize(query)
	if q == "" {
		return tabs
	}
	var result []types.Tab
	for i := range tabs {
		if Matches(&tabs[i], q) {
			result = append(result, tabs[i])
		}
	}
	return result
}

// Score computes the additive relevance score of a tab for a normalized
// query. Zero means no field matched.
func Score(tab *types.Tab, normalizedQuery string) int {
	score := 0
	if strings.Contains(Normalize(tab.Title), normalizedQuery) {
		score += weightTitle
	}
	if strings.Contains(Normalize(tab.Domain), normalizedQuery) {
		score += weightDomain
	}
	for _, label := range tab.Labels {
		if strings.Contains(Normalize(label), normalizedQuery) {
			score += weightLabel
			break
		}
	}
	if strings.Contains(Normalize(tab.Description), normalizedQuery) {
		score += weightDescription
	}
	if strings.Contains(Normalize(tab.URL), normalizedQuery) {
		score += weightURL
	}
	return score
}

// Rank returns the tabs matching the query ordered by descending relevance.
// Ties keep their original relative order (stable sort), so results are
// deterministic. An empty query returns the input unchanged.
func Rank(tabs []types.Tab, query string) []types.Tab {
	q := Normalize(query)
	if q == "" {
		return tabs
	}

	type scored struct {
		tab   types.Tab
		score int
	}
	var hits []scored
	for i := range tabs {
		if s := Score(&tabs[i], q); s > 0 {
			hits = append(hits, scored{tabs[i], s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	result := make([]types.Tab, len(hits))
	for i, h := range hits {
		result[i] = h.tab
	}
	return result
}

// Highlight wraps every case-insensitive occurrence of the query in text
// with <mark> tags. The match pattern is built from the normalized query but
// applied to the original text, so accented source text that normalizes to
// the query can be missed. Known limitation, kept for parity with Filter.
func Highlight(text, query string) string {
	q := Normalize(query)
	if q == "" || text == "" {
		return text
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(q))
	if err != nil {
		return text
	}
	return re.ReplaceAllString(text, "<mark>$0</mark>")
}
