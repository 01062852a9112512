package kvstore

import (
	"encoding/json"
	"sync"
)

// Memory is an in-memory Store. Used as a test double and for ephemeral
// runs. A non-zero MaxBytes enforces a quota on the serialized size.
type Memory struct {
	mu       sync.Mutex
	items    map[string]json.RawMessage
	maxBytes int
}

// NewMemory creates an empty in-memory store. maxBytes of 0 means unlimited.
func NewMemory(maxBytes int) *Memory {
	return &Memory{
		items:    make(map[string]json.RawMessage),
		maxBytes: maxBytes,
	}
}

func (m *Memory) Get(keys ...string) (map[string]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[string]json.RawMessage)
	for _, k := range keys {
		if v, ok := m.items[k]; ok {
			result[k] = append(json.RawMessage(nil), v...)
		}
	}
	return result, nil
}

func (m *Memory) Set(items map[string]json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxBytes > 0 {
		total := 0
		for k, v := range m.items {
			if _, replaced := items[k]; replaced {
				continue
			}
			total += len(k) + len(v)
		}
		for k, v := range items {
			total += len(k) + len(v)
		}
		if total > m.maxBytes {
			return ErrQuotaExceeded
		}
	}

	for k, v := range items {
		m.items[k] = append(json.RawMessage(nil), v...)
	}
	return nil
}

func (m *Memory) Remove(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]json.RawMessage)
	return nil
}

func (m *Memory) BytesInUse() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for k, v := range m.items {
		total += len(k) + len(v)
	}
	return total, nil
}
