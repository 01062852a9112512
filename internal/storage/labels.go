package storage

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/lotas/tabvault/internal/applog"
	"github.com/lotas/tabvault/internal/kvstore"
	"github.com/lotas/tabvault/internal/types"
)

// predefined is the fixed built-in label set. Immutable; IDs are lowercase
// slugs that custom label IDs never collide with.
var predefined = []types.Label{
	{ID: "work", Name: "Work", Color: "#4285f4"},
	{ID: "personal", Name: "Personal", Color: "#34a853"},
	{ID: "research", Name: "Research", Color: "#fbbc05"},
	{ID: "shopping", Name: "Shopping", Color: "#ea4335"},
	{ID: "entertainment", Name: "Entertainment", Color: "#9c27b0"},
	{ID: "later", Name: "Read Later", Color: "#607d8b"},
}

// PredefinedLabels returns a copy of the built-in label set in its fixed
// order.
func PredefinedLabels() []types.Label {
	return append([]types.Label(nil), predefined...)
}

// CustomLabels returns the stored custom labels.
func (m *Manager) CustomLabels() ([]types.Label, error) {
	data, err := m.dataStore()
	if err != nil {
		return nil, err
	}
	var labels []types.Label
	if _, err := kvstore.GetJSON(data, KeyCustomLabels, &labels); err != nil {
		return nil, fmt.Errorf("read custom labels: %w", err)
	}
	return labels, nil
}

// SetCustomLabels replaces the stored custom labels.
func (m *Manager) SetCustomLabels(labels []types.Label) error {
	data, err := m.dataStore()
	if err != nil {
		return err
	}
	if labels == nil {
		labels = []types.Label{}
	}
	if err := kvstore.SetJSON(data, KeyCustomLabels, labels); err != nil {
		return fmt.Errorf("write custom labels: %w", err)
	}
	return nil
}

// AllLabels returns predefined labels first, in their fixed order, followed
// by custom labels in stored order.
func (m *Manager) AllLabels() ([]types.Label, error) {
	custom, err := m.CustomLabels()
	if err != nil {
		return nil, err
	}
	return append(PredefinedLabels(), custom...), nil
}

// AddCustomLabel creates a custom label with a generated ID, appends it, and
// persists the collection.
func (m *Manager) AddCustomLabel(name, color string) (types.Label, error) {
	labels, err := m.CustomLabels()
	if err != nil {
		return types.Label{}, err
	}

	label := types.Label{
		ID:       uuid.NewString(),
		Name:     name,
		Color:    color,
		IsCustom: true,
	}
	labels = append(labels, label)
	if err := m.SetCustomLabels(labels); err != nil {
		return types.Label{}, err
	}
	applog.Info("label.added", "id", label.ID, "name", name)
	return label, nil
}

// DeleteCustomLabel removes the label from the custom-labels collection
// only. It does not cascade into tab records: callers must strip the deleted
// ID from every tab that references it (see registry.RemoveLabelFromTabs).
func (m *Manager) DeleteCustomLabel(id string) error {
	labels, err := m.CustomLabels()
	if err != nil {
		return err
	}

	kept := labels[:0]
	for _, l := range labels {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	if err := m.SetCustomLabels(kept); err != nil {
		return err
	}
	applog.Info("label.deleted", "id", id)
	return nil
}
