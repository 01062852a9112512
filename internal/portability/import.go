package portability

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lotas/tabvault/internal/applog"
	"github.com/lotas/tabvault/internal/storage"
)

// ImportMode selects how an imported document is reconciled with existing
// state.
type ImportMode string

const (
	// ModeMerge adds only records not already present: tabs dedup by URL,
	// labels by ID.
	ModeMerge ImportMode = "merge"
	// ModeReplace discards existing tabs and custom labels in favor of the
	// document's versions. No merge, no ID or URL checks.
	ModeReplace ImportMode = "replace"
)

// Result summarizes what an import actually wrote.
type Result struct {
	TabsImported   int
	TabsSkipped    int
	LabelsImported int
}

// looseDoc mirrors the document shape with raw fields so validation can
// distinguish "absent" from "wrong type" before committing to the typed
// unmarshal.
type looseDoc struct {
	Data *struct {
		Tabs         *json.RawMessage `json:"tabs"`
		CustomLabels *json.RawMessage `json:"customLabels"`
	} `json:"data"`
}

// Validate performs structural validation of a raw export document and
// returns every problem found; it never stops at the first error. An empty
// slice means the document is importable.
func Validate(raw []byte) []string {
	var errs []string

	var loose looseDoc
	if err := json.Unmarshal(raw, &loose); err != nil {
		return []string{"document is not valid JSON: " + err.Error()}
	}
	if loose.Data == nil {
		return []string{"document has no data property"}
	}

	if loose.Data.Tabs == nil {
		errs = append(errs, "data.tabs is missing")
	} else {
		var tabs []json.RawMessage
		if err := json.Unmarshal(*loose.Data.Tabs, &tabs); err != nil {
			errs = append(errs, "data.tabs is not an array")
		} else {
			for i, rawTab := range tabs {
				var tab struct {
					URL   string `json:"url"`
					Title string `json:"title"`
				}
				if err := json.Unmarshal(rawTab, &tab); err != nil {
					errs = append(errs, fmt.Sprintf("tab %d: not an object", i))
					continue
				}
				if tab.URL == "" {
					errs = append(errs, fmt.Sprintf("tab %d: missing url", i))
				}
				if tab.Title == "" {
					errs = append(errs, fmt.Sprintf("tab %d: missing title", i))
				}
			}
		}
	}

	if loose.Data.CustomLabels != nil {
		var labels []json.RawMessage
		if err := json.Unmarshal(*loose.Data.CustomLabels, &labels); err != nil {
			errs = append(errs, "data.customLabels is not an array")
		}
	}

	return errs
}

// Import validates the document and reconciles it into storage. An invalid
// document aborts the whole import with one aggregated error; there is no
// partial import of the valid subset. An empty mode defaults to merge.
func Import(m *storage.Manager, raw []byte, mode ImportMode) (Result, error) {
	if mode == "" {
		mode = ModeMerge
	}

	if errs := Validate(raw); len(errs) > 0 {
		applog.Error("import.invalid", nil, "errors", len(errs))
		return Result{}, fmt.Errorf("invalid import document: %s", strings.Join(errs, "; "))
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Result{}, fmt.Errorf("parse import document: %w", err)
	}

	switch mode {
	case ModeReplace:
		return importReplace(m, &doc)
	case ModeMerge:
		return importMerge(m, &doc)
	default:
		return Result{}, fmt.Errorf("unknown import mode %q", mode)
	}
}

func importReplace(m *storage.Manager, doc *Document) (Result, error) {
	if err := m.SetTabs(doc.Data.Tabs); err != nil {
		return Result{}, err
	}
	if err := m.SetCustomLabels(doc.Data.CustomLabels); err != nil {
		return Result{}, err
	}
	applog.Info("import.replace", "tabs", len(doc.Data.Tabs), "labels", len(doc.Data.CustomLabels))
	return Result{
		TabsImported:   len(doc.Data.Tabs),
		LabelsImported: len(doc.Data.CustomLabels),
	}, nil
}

func importMerge(m *storage.Manager, doc *Document) (Result, error) {
	existing, err := m.Tabs()
	if err != nil {
		return Result{}, err
	}

	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[t.URL] = true
	}

	var result Result
	merged := existing
	for _, tab := range doc.Data.Tabs {
		if seen[tab.URL] {
			result.TabsSkipped++
			continue
		}
		if tab.ID == "" {
			tab.ID = uuid.NewString()
		}
		if tab.DateAdded == 0 {
			tab.DateAdded = time.Now().UnixMilli()
		}
		merged = append(merged, tab)
		seen[tab.URL] = true
		result.TabsImported++
	}
	// Single combined write for all surviving tabs.
	if err := m.SetTabs(merged); err != nil {
		return Result{}, err
	}

	// Labels merge by ID against the union of predefined and custom.
	current, err := m.AllLabels()
	if err != nil {
		return Result{}, err
	}
	knownIDs := make(map[string]bool, len(current))
	for _, l := range current {
		knownIDs[l.ID] = true
	}

	custom, err := m.CustomLabels()
	if err != nil {
		return Result{}, err
	}
	for _, label := range doc.Data.CustomLabels {
		if knownIDs[label.ID] {
			continue
		}
		custom = append(custom, label)
		knownIDs[label.ID] = true
		result.LabelsImported++
	}
	if err := m.SetCustomLabels(custom); err != nil {
		return Result{}, err
	}

	applog.Info("import.merge",
		"imported", result.TabsImported,
		"skipped", result.TabsSkipped,
		"labels", result.LabelsImported,
	)
	return result, nil
}
