// Package pagemeta fetches title and description for a URL being saved
// without explicit metadata.
package pagemeta

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

var skipPrefixes = []string{"about:", "moz-extension:", "file:", "chrome:", "resource:", "data:"}

// Meta is what could be extracted from the page.
type Meta struct {
	Title       string
	Description string
}

// Fetch downloads the page and extracts a title and a short description via
// readability. Returns an error for non-HTTP URLs or when extraction fails;
// callers save the tab without metadata in that case.
func Fetch(url string) (*Meta, error) {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(url, prefix) {
			return nil, fmt.Errorf("skipping non-HTTP URL: %s", url)
		}
	}

	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, nil)
	if err != nil {
		return nil, fmt.Errorf("extract content from %s: %w", url, err)
	}

	return &Meta{
		Title:       article.Title,
		Description: Describe(article.Excerpt, article.TextContent),
	}, nil
}

// Describe picks a short description: the article excerpt when present,
// otherwise the first 200 characters of the text content.
func Describe(excerpt, text string) string {
	if excerpt != "" {
		return strings.TrimSpace(excerpt)
	}
	text = strings.TrimSpace(strings.Join(strings.Fields(text), " "))
	if len(text) > 200 {
		runes := []rune(text)
		if len(runes) > 200 {
			return string(runes[:200]) + "…"
		}
	}
	return text
}
