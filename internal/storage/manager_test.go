package storage

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/lotas/tabvault/internal/kvstore"
	"github.com/lotas/tabvault/internal/types"
)

// testManager builds a Manager over in-memory backends with the sync quota
// applied, mirroring the production wiring.
func testManager(t *testing.T) (*Manager, *kvstore.Memory, *kvstore.Memory) {
	t.Helper()
	local := kvstore.NewMemory(0)
	syncStore := kvstore.NewMemory(SyncQuotaBytes)
	m := NewManager(local, syncStore)
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return m, local, syncStore
}

func modePtr(mode types.StorageMode) *types.StorageMode {
	return &mode
}

func TestSettingsDefaults(t *testing.T) {
	m, _, _ := testManager(t)

	settings, err := m.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if settings.StorageMode != types.ModeLocal {
		t.Errorf("default mode = %q, want local", settings.StorageMode)
	}
	if settings.DefaultLabels == nil || settings.GroupsCollapsed == nil {
		t.Error("default collections must be non-nil")
	}
}

func TestSettingsShallowMerge(t *testing.T) {
	m, local, _ := testManager(t)

	// A partial settings object on disk: missing keys fall back to defaults.
	if err := local.Set(map[string]json.RawMessage{KeySettings: json.RawMessage(`{"defaultLabels":["work"]}`)}); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	settings, err := m.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if len(settings.DefaultLabels) != 1 || settings.DefaultLabels[0] != "work" {
		t.Errorf("stored key lost: %v", settings.DefaultLabels)
	}
	if settings.StorageMode != types.ModeLocal {
		t.Errorf("absent key must fall back to default, got %q", settings.StorageMode)
	}
}

func TestUpdateSettingsPatch(t *testing.T) {
	m, _, _ := testManager(t)

	got, err := m.UpdateSettings(SettingsPatch{DefaultLabels: []string{"research"}})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if len(got.DefaultLabels) != 1 || got.DefaultLabels[0] != "research" {
		t.Errorf("patch not applied: %v", got.DefaultLabels)
	}
	if got.StorageMode != types.ModeLocal {
		t.Errorf("untouched field changed: %q", got.StorageMode)
	}

	// Second patch on a different field keeps the first.
	got, err = m.UpdateSettings(SettingsPatch{GroupsCollapsed: map[string]bool{"github.com": true}})
	if err != nil {
		t.Fatalf("second UpdateSettings: %v", err)
	}
	if len(got.DefaultLabels) != 1 {
		t.Error("earlier patch lost")
	}
	if !got.GroupsCollapsed["github.com"] {
		t.Error("collapsed state not applied")
	}
}

func TestUpdateSettingsRejectsUnknownMode(t *testing.T) {
	m, _, _ := testManager(t)

	bad := types.StorageMode("cloud")
	if _, err := m.UpdateSettings(SettingsPatch{StorageMode: &bad}); err == nil {
		t.Fatal("expected error for unknown storage mode")
	}
}

func TestModeSwitchMigratesData(t *testing.T) {
	m, local, syncStore := testManager(t)

	tabs := []types.Tab{{ID: "a", URL: "https://go.dev", Domain: "go.dev"}}
	if err := m.SetTabs(tabs); err != nil {
		t.Fatalf("SetTabs: %v", err)
	}
	if _, err := m.AddCustomLabel("Projects", "#123456"); err != nil {
		t.Fatalf("AddCustomLabel: %v", err)
	}

	if _, err := m.UpdateSettings(SettingsPatch{StorageMode: modePtr(types.ModeSync)}); err != nil {
		t.Fatalf("switch to sync: %v", err)
	}

	// Data is now served from the sync backend.
	items, err := syncStore.Get(KeyTabs, KeyCustomLabels)
	if err != nil {
		t.Fatalf("sync Get: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected tabs and customLabels in sync, got %d keys", len(items))
	}

	got, err := m.Tabs()
	if err != nil {
		t.Fatalf("Tabs after switch: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("tabs not readable after switch: %v", got)
	}

	// Settings always stay local.
	localItems, _ := local.Get(KeySettings)
	if _, ok := localItems[KeySettings]; !ok {
		t.Error("settings must remain in the local backend")
	}

	// Switching back removes the data from sync.
	if _, err := m.UpdateSettings(SettingsPatch{StorageMode: modePtr(types.ModeLocal)}); err != nil {
		t.Fatalf("switch back to local: %v", err)
	}
	items, _ = syncStore.Get(KeyTabs, KeyCustomLabels)
	if len(items) != 0 {
		t.Errorf("sync backend should be cleaned after migrating off it, %d keys remain", len(items))
	}
	got, _ = m.Tabs()
	if len(got) != 1 {
		t.Errorf("tabs lost on round trip: %d", len(got))
	}
}

func TestMigrateCapacityGuard(t *testing.T) {
	m, local, syncStore := testManager(t)

	// A payload whose serialized size exceeds the sync cap.
	big := strings.Repeat("x", SyncQuotaBytes)
	tabs := []types.Tab{{ID: "a", URL: "https://a.com", Domain: "a.com", Description: big}}
	if err := m.SetTabs(tabs); err != nil {
		t.Fatalf("SetTabs: %v", err)
	}

	_, err := m.UpdateSettings(SettingsPatch{StorageMode: modePtr(types.ModeSync)})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	// Nothing was written to the destination.
	items, _ := syncStore.Get(KeyTabs, KeyCustomLabels)
	if len(items) != 0 {
		t.Errorf("destination must be untouched on a failed migration, got %d keys", len(items))
	}

	// The source still has the data and the mode is unchanged.
	items, _ = local.Get(KeyTabs)
	if _, ok := items[KeyTabs]; !ok {
		t.Error("source data lost on a failed migration")
	}
	settings, _ := m.Settings()
	if settings.StorageMode != types.ModeLocal {
		t.Errorf("mode changed despite failed migration: %q", settings.StorageMode)
	}
	got, err := m.Tabs()
	if err != nil {
		t.Fatalf("Tabs: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("tabs unreadable after failed migration: %d", len(got))
	}
}

func TestInitializeIdempotent(t *testing.T) {
	m, _, _ := testManager(t)

	if err := m.SetTabs([]types.Tab{{ID: "keep", URL: "https://x.com"}}); err != nil {
		t.Fatalf("SetTabs: %v", err)
	}
	if _, err := m.UpdateSettings(SettingsPatch{DefaultLabels: []string{"work"}}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	// Running setup again must not reset anything.
	if err := m.Initialize(); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}

	tabs, _ := m.Tabs()
	if len(tabs) != 1 || tabs[0].ID != "keep" {
		t.Errorf("Initialize overwrote tabs: %v", tabs)
	}
	settings, _ := m.Settings()
	if len(settings.DefaultLabels) != 1 {
		t.Errorf("Initialize overwrote settings: %v", settings.DefaultLabels)
	}
}

func TestTabsNilNormalization(t *testing.T) {
	m, _, _ := testManager(t)

	if err := m.SetTabs(nil); err != nil {
		t.Fatalf("SetTabs(nil): %v", err)
	}
	items, _ := m.Get(KeyTabs)
	if string(items[KeyTabs]) != "[]" {
		t.Errorf("nil tabs must serialize as [], got %s", items[KeyTabs])
	}
}

func TestPredefinedLabelsFixedOrder(t *testing.T) {
	labels := PredefinedLabels()
	want := []string{"work", "personal", "research", "shopping", "entertainment", "later"}
	if len(labels) != len(want) {
		t.Fatalf("expected %d predefined labels, got %d", len(want), len(labels))
	}
	for i, id := range want {
		if labels[i].ID != id {
			t.Errorf("position %d: got %q, want %q", i, labels[i].ID, id)
		}
		if labels[i].IsCustom {
			t.Errorf("predefined label %q marked custom", id)
		}
	}

	// Mutating the returned slice must not affect later calls.
	labels[0].Name = "mutated"
	if PredefinedLabels()[0].Name == "mutated" {
		t.Error("PredefinedLabels must return a copy")
	}
}

func TestAllLabelsOrder(t *testing.T) {
	m, _, _ := testManager(t)

	added, err := m.AddCustomLabel("Side Projects", "#aabbcc")
	if err != nil {
		t.Fatalf("AddCustomLabel: %v", err)
	}
	if !added.IsCustom || added.ID == "" {
		t.Errorf("custom label not marked: %+v", added)
	}

	all, err := m.AllLabels()
	if err != nil {
		t.Fatalf("AllLabels: %v", err)
	}
	if len(all) != len(predefined)+1 {
		t.Fatalf("expected %d labels, got %d", len(predefined)+1, len(all))
	}
	// Predefined first, custom appended.
	if all[0].ID != "work" || all[len(all)-1].ID != added.ID {
		t.Errorf("wrong label order: first=%q last=%q", all[0].ID, all[len(all)-1].ID)
	}
}

func TestDeleteCustomLabel(t *testing.T) {
	m, _, _ := testManager(t)

	a, _ := m.AddCustomLabel("A", "#111111")
	b, _ := m.AddCustomLabel("B", "#222222")

	if err := m.DeleteCustomLabel(a.ID); err != nil {
		t.Fatalf("DeleteCustomLabel: %v", err)
	}
	custom, _ := m.CustomLabels()
	if len(custom) != 1 || custom[0].ID != b.ID {
		t.Errorf("expected only %q to remain, got %v", b.ID, custom)
	}

	// Deleting a missing ID is a quiet no-op.
	if err := m.DeleteCustomLabel("nope"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	custom, _ = m.CustomLabels()
	if len(custom) != 1 {
		t.Errorf("no-op delete changed the collection: %v", custom)
	}
}
