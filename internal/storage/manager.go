// Package storage owns the durable representation of tabs, labels, and
// settings across two key-value backends. All other packages operate on
// in-memory copies obtained here and route every mutation back through it.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/lotas/tabvault/internal/applog"
	"github.com/lotas/tabvault/internal/kvstore"
	"github.com/lotas/tabvault/internal/types"
)

// Persisted keys. This triple is the storage schema, stable across versions;
// export/import and migration operate on exactly these.
const (
	KeyTabs         = "tabs"
	KeyCustomLabels = "customLabels"
	KeySettings     = "settings"
)

// SyncQuotaBytes is the hard serialized-size cap of the sync backend.
const SyncQuotaBytes = 100_000

// ErrCapacityExceeded is returned when a migration payload would not fit in
// the sync backend. The destination is left untouched.
var ErrCapacityExceeded = errors.New("payload exceeds sync storage capacity")

// Manager resolves reads and writes to the right backend. Settings always
// live in the local backend; tab/label data lives wherever
// settings.storageMode points. The resolved mode is cached after first read
// and only updated by an explicit mode change.
type Manager struct {
	local kvstore.Store
	sync  kvstore.Store

	mu         sync.Mutex
	mode       types.StorageMode
	modeLoaded bool
}

// NewManager creates a Manager over the two backends.
func NewManager(local, syncStore kvstore.Store) *Manager {
	return &Manager{local: local, sync: syncStore}
}

// DefaultSettings returns the hardcoded settings defaults.
func DefaultSettings() types.Settings {
	return types.Settings{
		StorageMode:     types.ModeLocal,
		DefaultLabels:   []string{},
		GroupsCollapsed: map[string]bool{},
	}
}

// Settings returns stored settings merged over the defaults: keys absent
// from storage fall back to their default values. Shallow merge, not deep.
func (m *Manager) Settings() (types.Settings, error) {
	settings := DefaultSettings()
	if _, err := kvstore.GetJSON(m.local, KeySettings, &settings); err != nil {
		return types.Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return settings, nil
}

// SettingsPatch is a partial settings update. Nil fields are left unchanged.
type SettingsPatch struct {
	StorageMode     *types.StorageMode
	DefaultLabels   []string
	GroupsCollapsed map[string]bool
}

// UpdateSettings merges the patch over current settings and persists the
// result. A storage-mode change triggers migration before the new settings
// are written; the cached mode is updated only after migration succeeds.
func (m *Manager) UpdateSettings(patch SettingsPatch) (types.Settings, error) {
	current, err := m.Settings()
	if err != nil {
		return types.Settings{}, err
	}

	next := current
	if patch.DefaultLabels != nil {
		next.DefaultLabels = patch.DefaultLabels
	}
	if patch.GroupsCollapsed != nil {
		next.GroupsCollapsed = patch.GroupsCollapsed
	}
	if patch.StorageMode != nil {
		next.StorageMode = *patch.StorageMode
	}

	if next.StorageMode != current.StorageMode {
		if !next.StorageMode.Valid() {
			return types.Settings{}, fmt.Errorf("unknown storage mode %q", next.StorageMode)
		}
		if err := m.Migrate(current.StorageMode, next.StorageMode); err != nil {
			return types.Settings{}, err
		}
	}

	if err := kvstore.SetJSON(m.local, KeySettings, next); err != nil {
		return types.Settings{}, fmt.Errorf("write settings: %w", err)
	}

	if next.StorageMode != current.StorageMode {
		m.mu.Lock()
		m.mode = next.StorageMode
		m.modeLoaded = true
		m.mu.Unlock()
		applog.Info("storage.mode", "mode", string(next.StorageMode))
	}

	return next, nil
}

// Migrate copies tabs and custom labels from one backend to the other.
// A payload too large for sync fails before anything is written to the
// destination. The write/remove pair is not atomic across backends: a crash
// in between can leave data in both. Known limitation.
func (m *Manager) Migrate(from, to types.StorageMode) error {
	src := m.storeFor(from)
	dst := m.storeFor(to)

	items, err := src.Get(KeyTabs, KeyCustomLabels)
	if err != nil {
		return fmt.Errorf("read source backend: %w", err)
	}

	if to == types.ModeSync {
		total := 0
		for key, value := range items {
			total += len(key) + len(value)
		}
		if total > SyncQuotaBytes {
			applog.Error("storage.migrate", ErrCapacityExceeded, "bytes", total)
			return fmt.Errorf("migrate %d bytes to sync: %w", total, ErrCapacityExceeded)
		}
	}

	if len(items) > 0 {
		if err := dst.Set(items); err != nil {
			return fmt.Errorf("write destination backend: %w", err)
		}
	}

	// Settings are never moved; they always live locally. The local area is
	// also left in place as the larger store when migrating off it.
	if from != types.ModeLocal {
		if err := src.Remove(KeyTabs, KeyCustomLabels); err != nil {
			return fmt.Errorf("clean source backend: %w", err)
		}
	}

	applog.Info("storage.migrate", "from", string(from), "to", string(to))
	return nil
}

// Initialize is the idempotent first-run setup: each of settings, tabs, and
// custom labels gets a default value only if absent. Existing data is never
// overwritten.
func (m *Manager) Initialize() error {
	stored, err := m.local.Get(KeySettings)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	if _, ok := stored[KeySettings]; !ok {
		if err := kvstore.SetJSON(m.local, KeySettings, DefaultSettings()); err != nil {
			return fmt.Errorf("write default settings: %w", err)
		}
	}

	data, err := m.dataStore()
	if err != nil {
		return err
	}
	existing, err := data.Get(KeyTabs, KeyCustomLabels)
	if err != nil {
		return fmt.Errorf("read data keys: %w", err)
	}
	defaults := make(map[string]json.RawMessage)
	if _, ok := existing[KeyTabs]; !ok {
		defaults[KeyTabs] = json.RawMessage("[]")
	}
	if _, ok := existing[KeyCustomLabels]; !ok {
		defaults[KeyCustomLabels] = json.RawMessage("[]")
	}
	if len(defaults) > 0 {
		if err := data.Set(defaults); err != nil {
			return fmt.Errorf("write defaults: %w", err)
		}
	}
	return nil
}

func (m *Manager) storeFor(mode types.StorageMode) kvstore.Store {
	if mode == types.ModeSync {
		return m.sync
	}
	return m.local
}

// dataStore returns the backend currently designated for tab/label data,
// loading and caching the storage mode on first use.
func (m *Manager) dataStore() (kvstore.Store, error) {
	m.mu.Lock()
	loaded, mode := m.modeLoaded, m.mode
	m.mu.Unlock()

	if !loaded {
		settings, err := m.Settings()
		if err != nil {
			return nil, err
		}
		mode = settings.StorageMode
		m.mu.Lock()
		m.mode = mode
		m.modeLoaded = true
		m.mu.Unlock()
	}
	return m.storeFor(mode), nil
}

// Get reads keys from the resolved data backend.
func (m *Manager) Get(keys ...string) (map[string]json.RawMessage, error) {
	data, err := m.dataStore()
	if err != nil {
		return nil, err
	}
	return data.Get(keys...)
}

// Set writes items to the resolved data backend.
func (m *Manager) Set(items map[string]json.RawMessage) error {
	data, err := m.dataStore()
	if err != nil {
		return err
	}
	return data.Set(items)
}

// Remove deletes keys from the resolved data backend.
func (m *Manager) Remove(keys ...string) error {
	data, err := m.dataStore()
	if err != nil {
		return err
	}
	return data.Remove(keys...)
}

// Clear wipes the resolved data backend.
func (m *Manager) Clear() error {
	data, err := m.dataStore()
	if err != nil {
		return err
	}
	return data.Clear()
}

// Tabs returns the stored tab collection.
func (m *Manager) Tabs() ([]types.Tab, error) {
	data, err := m.dataStore()
	if err != nil {
		return nil, err
	}
	var tabs []types.Tab
	if _, err := kvstore.GetJSON(data, KeyTabs, &tabs); err != nil {
		return nil, fmt.Errorf("read tabs: %w", err)
	}
	return tabs, nil
}

// SetTabs replaces the stored tab collection.
func (m *Manager) SetTabs(tabs []types.Tab) error {
	data, err := m.dataStore()
	if err != nil {
		return err
	}
	if tabs == nil {
		tabs = []types.Tab{}
	}
	if err := kvstore.SetJSON(data, KeyTabs, tabs); err != nil {
		return fmt.Errorf("write tabs: %w", err)
	}
	return nil
}
