// Package registry implements CRUD over the saved-tab collection. Every
// operation is a full read-modify-write of the whole collection through the
// storage manager; concurrent writers are last-one-wins, which matches the
// single-user execution model this tool targets.
package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lotas/tabvault/internal/applog"
	"github.com/lotas/tabvault/internal/domain"
	"github.com/lotas/tabvault/internal/storage"
	"github.com/lotas/tabvault/internal/types"
)

// ErrTabNotFound is returned by operations that fail loudly on a missing
// tab ID. Delete and open are deliberately quiet instead.
var ErrTabNotFound = errors.New("tab not found")

// Opener is the host capability for opening a URL in a browser tab.
// Fire-and-forget: success of the page load is never confirmed.
type Opener interface {
	Open(url string) error
}

// Registry is the tab collection API over a storage manager. The clock and
// ID generator are swappable for tests.
type Registry struct {
	store  *storage.Manager
	opener Opener

	now   func() time.Time
	newID func() string
}

// New creates a Registry. opener may be nil when no browser link is
// available; OpenTab then only resolves (and optionally deletes) the record.
func New(store *storage.Manager, opener Opener) *Registry {
	return &Registry{
		store:  store,
		opener: opener,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Draft is the caller-supplied portion of a new tab record.
type Draft struct {
	URL         string
	Title       string
	Description string
	Labels      []string
	Favicon     string
}

// SaveTab constructs a full record from the draft and appends it to the
// collection. Duplicate URLs are not checked here; callers gate on
// IsURLSaved first.
func (r *Registry) SaveTab(draft Draft) (*types.Tab, error) {
	if draft.URL == "" {
		return nil, fmt.Errorf("save tab: url is required")
	}

	tabs, err := r.store.Tabs()
	if err != nil {
		return nil, err
	}

	d := domain.Extract(draft.URL)
	tab := types.Tab{
		ID:          r.newID(),
		URL:         draft.URL,
		Domain:      d,
		Title:       draft.Title,
		Description: draft.Description,
		Labels:      draft.Labels,
		Favicon:     draft.Favicon,
		DateAdded:   r.now().UnixMilli(),
	}
	if tab.Labels == nil {
		tab.Labels = []string{}
	}
	if tab.Favicon == "" {
		tab.Favicon = domain.FaviconURL(d)
	}

	tabs = append(tabs, tab)
	if err := r.store.SetTabs(tabs); err != nil {
		return nil, err
	}
	applog.Info("tab.saved", "id", tab.ID, "domain", tab.Domain)
	return &tab, nil
}

// Patch is a partial tab update. Nil fields are left unchanged. The domain
// field is derived at save time only; patching the URL does not re-derive it.
type Patch struct {
	URL         *string
	Title       *string
	Description *string
	Labels      []string
	Favicon     *string
}

// UpdateTab shallow-merges the patch over the record with the given ID and
// stamps dateModified. Returns ErrTabNotFound if no tab has that ID.
func (r *Registry) UpdateTab(id string, patch Patch) (*types.Tab, error) {
	tabs, err := r.store.Tabs()
	if err != nil {
		return nil, err
	}

	for i := range tabs {
		if tabs[i].ID != id {
			continue
		}
		if patch.URL != nil {
			tabs[i].URL = *patch.URL
		}
		if patch.Title != nil {
			tabs[i].Title = *patch.Title
		}
		if patch.Description != nil {
			tabs[i].Description = *patch.Description
		}
		if patch.Labels != nil {
			tabs[i].Labels = patch.Labels
		}
		if patch.Favicon != nil {
			tabs[i].Favicon = *patch.Favicon
		}
		tabs[i].DateModified = r.now().UnixMilli()

		if err := r.store.SetTabs(tabs); err != nil {
			return nil, err
		}
		updated := tabs[i]
		return &updated, nil
	}
	return nil, fmt.Errorf("update tab %s: %w", id, ErrTabNotFound)
}

// DeleteTab removes the record with the given ID. Deleting a missing ID is
// a no-op.
func (r *Registry) DeleteTab(id string) error {
	tabs, err := r.store.Tabs()
	if err != nil {
		return err
	}

	kept := tabs[:0]
	for _, t := range tabs {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	return r.store.SetTabs(kept)
}

// GetTab returns the record with the given ID, or nil if absent.
func (r *Registry) GetTab(id string) (*types.Tab, error) {
	tabs, err := r.store.Tabs()
	if err != nil {
		return nil, err
	}
	for i := range tabs {
		if tabs[i].ID == id {
			tab := tabs[i]
			return &tab, nil
		}
	}
	return nil, nil
}

// AllTabs returns the full stored collection.
func (r *Registry) AllTabs() ([]types.Tab, error) {
	return r.store.Tabs()
}

// Count returns the number of stored tabs.
func (r *Registry) Count() (int, error) {
	tabs, err := r.store.Tabs()
	if err != nil {
		return 0, err
	}
	return len(tabs), nil
}

// IsURLSaved reports whether a record with exactly this URL exists.
func (r *Registry) IsURLSaved(url string) (bool, error) {
	tabs, err := r.store.Tabs()
	if err != nil {
		return false, err
	}
	for i := range tabs {
		if tabs[i].URL == url {
			return true, nil
		}
	}
	return false, nil
}

// OpenTab resolves the record, asks the host to open its URL, and deletes
// the record afterwards when deleteAfter is set. A missing ID is a quiet
// no-op returning nil. The (possibly deleted) record is returned either way.
func (r *Registry) OpenTab(id string, deleteAfter bool) (*types.Tab, error) {
	tab, err := r.GetTab(id)
	if err != nil {
		return nil, err
	}
	if tab == nil {
		return nil, nil
	}

	if r.opener != nil {
		if err := r.opener.Open(tab.URL); err != nil {
			return nil, fmt.Errorf("open %s: %w", tab.URL, err)
		}
	}
	if deleteAfter {
		if err := r.DeleteTab(id); err != nil {
			return nil, err
		}
	}
	applog.Info("tab.opened", "id", id, "deleted", deleteAfter)
	return tab, nil
}

// OpenAllInDomain opens every tab in the domain, one at a time, and returns
// how many were opened. Opens are sequential, not batched; there is no
// cancellation once the loop starts.
func (r *Registry) OpenAllInDomain(dom string) (int, error) {
	tabs, err := r.store.Tabs()
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range tabs {
		if tabs[i].Domain != dom {
			continue
		}
		if r.opener != nil {
			if err := r.opener.Open(tabs[i].URL); err != nil {
				return count, fmt.Errorf("open %s: %w", tabs[i].URL, err)
			}
		}
		count++
	}
	return count, nil
}

// DeleteAllInDomain removes every tab in the domain and returns how many
// were removed.
func (r *Registry) DeleteAllInDomain(dom string) (int, error) {
	tabs, err := r.store.Tabs()
	if err != nil {
		return 0, err
	}

	kept := tabs[:0]
	removed := 0
	for _, t := range tabs {
		if t.Domain == dom {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	if removed > 0 {
		if err := r.store.SetTabs(kept); err != nil {
			return 0, err
		}
	}
	applog.Info("tabs.domain_deleted", "domain", dom, "count", removed)
	return removed, nil
}

// ClearAll replaces the tab collection with an empty one.
func (r *Registry) ClearAll() error {
	return r.store.SetTabs([]types.Tab{})
}

// RemoveLabelFromTabs strips the label ID from every tab referencing it and
// returns how many tabs were touched. This is the caller-side cascade that
// follows storage.DeleteCustomLabel.
func (r *Registry) RemoveLabelFromTabs(labelID string) (int, error) {
	tabs, err := r.store.Tabs()
	if err != nil {
		return 0, err
	}

	touched := 0
	for i := range tabs {
		if !tabs[i].HasLabel(labelID) {
			continue
		}
		kept := tabs[i].Labels[:0]
		for _, l := range tabs[i].Labels {
			if l != labelID {
				kept = append(kept, l)
			}
		}
		tabs[i].Labels = kept
		touched++
	}
	if touched > 0 {
		if err := r.store.SetTabs(tabs); err != nil {
			return 0, err
		}
	}
	return touched, nil
}
