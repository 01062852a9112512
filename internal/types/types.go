package types

// Tab is a persisted reference to a saved browser page, not a live open tab.
// JSON field names match the storage schema and the export document format.
type Tab struct {
	ID           string   `json:"id"`
	URL          string   `json:"url"`
	Domain       string   `json:"domain"` // derived from URL at save time, cached
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Labels       []string `json:"labels"` // label IDs, order irrelevant
	Favicon      string   `json:"favicon,omitempty"`
	DateAdded    int64    `json:"dateAdded"` // epoch millis, set once
	DateModified int64    `json:"dateModified,omitempty"`
}

// DisplayTitle returns the title, falling back to the URL when empty.
func (t *Tab) DisplayTitle() string {
	if t.Title == "" {
		return t.URL
	}
	return t.Title
}

// HasLabel reports whether the tab references the given label ID.
func (t *Tab) HasLabel(id string) bool {
	for _, l := range t.Labels {
		if l == id {
			return true
		}
	}
	return false
}

// Label is a tag that can be applied to tabs. Predefined labels use fixed
// lowercase slugs as IDs; custom labels use generated IDs.
type Label struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"` // CSS color, e.g. "#4285f4"
	IsCustom bool   `json:"isCustom"`
}

// StorageMode selects which backend holds tab and label data.
type StorageMode string

const (
	ModeLocal StorageMode = "local" // large capacity, this machine only
	ModeSync  StorageMode = "sync"  // ~100 kB cap, shared across devices
)

// Valid reports whether the mode is one of the known backends.
func (m StorageMode) Valid() bool {
	return m == ModeLocal || m == ModeSync
}

// Settings holds user preferences. Settings always live in the local backend;
// StorageMode governs only where tab/label data lives.
type Settings struct {
	StorageMode     StorageMode     `json:"storageMode"`
	DefaultLabels   []string        `json:"defaultLabels"`
	GroupsCollapsed map[string]bool `json:"groupsCollapsed"`
}

// DomainGroup is a runtime-computed cluster of tabs sharing a hostname.
// Never persisted; recomputed on every query.
type DomainGroup struct {
	Domain      string
	DisplayName string
	Tabs        []Tab // newest first
	Count       int
}
