// Package portability moves the whole stored state in and out: versioned
// JSON snapshots, a Markdown rendering, and Firefox session import. It is
// the only place that bulk-rewrites storage non-incrementally.
package portability

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lotas/tabvault/internal/storage"
	"github.com/lotas/tabvault/internal/types"
)

// Version is the export document format version.
const Version = "1.0.0"

// Document is the file interchange format. External tools producing this
// shape bit-exactly are importable.
type Document struct {
	Version    string       `json:"version"`
	ExportDate string       `json:"exportDate"` // ISO-8601
	Data       DocumentData `json:"data"`
}

// DocumentData is the full snapshot payload: exactly the persisted triple.
type DocumentData struct {
	Tabs         []types.Tab    `json:"tabs"`
	CustomLabels []types.Label  `json:"customLabels"`
	Settings     types.Settings `json:"settings"`
}

// Export builds a full-state snapshot document. A snapshot, not a diff.
func Export(m *storage.Manager) (*Document, error) {
	tabs, err := m.Tabs()
	if err != nil {
		return nil, err
	}
	labels, err := m.CustomLabels()
	if err != nil {
		return nil, err
	}
	settings, err := m.Settings()
	if err != nil {
		return nil, err
	}

	if tabs == nil {
		tabs = []types.Tab{}
	}
	if labels == nil {
		labels = []types.Label{}
	}

	return &Document{
		Version:    Version,
		ExportDate: time.Now().UTC().Format(time.RFC3339),
		Data: DocumentData{
			Tabs:         tabs,
			CustomLabels: labels,
			Settings:     settings,
		},
	}, nil
}

// ExportJSON renders the snapshot document as indented JSON.
func ExportJSON(m *storage.Manager) ([]byte, error) {
	doc, err := Export(m)
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export document: %w", err)
	}
	return append(b, '\n'), nil
}
