// Package kvstore provides the key-value storage capability consumed by the
// rest of the application: two independent areas (local and sync) with the
// same narrow contract a browser extension would get from its host.
package kvstore

import (
	"encoding/json"
	"errors"
)

// ErrQuotaExceeded is returned by a backend when a write would push its
// serialized contents past the configured byte quota. The write is not
// applied.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Store is a key-value area holding JSON values. Implementations must apply
// Set all-or-nothing: a quota rejection leaves the area untouched.
type Store interface {
	// Get returns the values for the requested keys. Missing keys are
	// simply absent from the result, not an error.
	Get(keys ...string) (map[string]json.RawMessage, error)

	// Set writes all items.
	Set(items map[string]json.RawMessage) error

	// Remove deletes the given keys. Missing keys are ignored.
	Remove(keys ...string) error

	// Clear deletes everything in the area.
	Clear() error

	// BytesInUse returns the serialized size of the area (keys + values).
	BytesInUse() (int, error)
}

// GetJSON reads one key and unmarshals it into v. Returns false if the key
// is absent.
func GetJSON(s Store, key string, v any) (bool, error) {
	items, err := s.Get(key)
	if err != nil {
		return false, err
	}
	raw, ok := items[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and writes it under key.
func SetJSON(s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(map[string]json.RawMessage{key: raw})
}
