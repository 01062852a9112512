package registry

import (
	"net/url"
	"sort"
	"strings"

	"github.com/lotas/tabvault/internal/types"
)

// NormalizeURL canonicalizes a URL for duplicate comparison: fragment
// dropped, query parameters sorted, trailing slash trimmed except on a bare
// host. Unparseable URLs are returned as-is.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	params := u.Query()
	for k := range params {
		sort.Strings(params[k])
	}
	u.RawQuery = params.Encode()
	result := u.String()
	if strings.HasSuffix(result, "/") && result != u.Scheme+"://"+u.Host+"/" {
		result = strings.TrimRight(result, "/")
	}
	return result
}

// DuplicateGroup is a set of tabs whose URLs normalize to the same value.
type DuplicateGroup struct {
	URL  string // normalized form
	Tabs []types.Tab
}

// Duplicates reports groups of saved tabs that point at the same page once
// URLs are normalized. Exact-URL dedup at save time misses these (tracking
// params, fragments), so this is a separate report. Groups and members keep
// collection order.
func (r *Registry) Duplicates() ([]DuplicateGroup, error) {
	tabs, err := r.store.Tabs()
	if err != nil {
		return nil, err
	}

	byURL := make(map[string][]types.Tab)
	var order []string
	for _, t := range tabs {
		n := NormalizeURL(t.URL)
		if _, seen := byURL[n]; !seen {
			order = append(order, n)
		}
		byURL[n] = append(byURL[n], t)
	}

	var groups []DuplicateGroup
	for _, n := range order {
		if len(byURL[n]) < 2 {
			continue
		}
		groups = append(groups, DuplicateGroup{URL: n, Tabs: byURL[n]})
	}
	return groups, nil
}
