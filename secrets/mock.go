package secrets

import "sync"

func init() {
	RegisterStore("mock", func() (Store, error) {
		return NewMockStore(), nil
	})
}

// MockStore is an in-memory implementation of Store for testing.
// This is exported so it can be used by tests in other packages.
type MockStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

// NewMockStore creates an empty in-memory secret store.
func NewMockStore() *MockStore {
	return &MockStore{values: make(map[string]map[string]string)}
}

// Get returns the secrets stored for locator, or an empty map if none are.
func (m *MockStore) Get(locator string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.values[locator]
	if !ok {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(stored))
	for k, v := range stored {
		out[k] = v
	}
	return out, nil
}

// Set replaces the secrets stored for locator.
func (m *MockStore) Set(locator string, values map[string]string) error {
	stored := make(map[string]string, len(values))
	for k, v := range values {
		stored[k] = v
	}
	m.mu.Lock()
	m.values[locator] = stored
	m.mu.Unlock()
	return nil
}

// Locators returns every locator with stored secrets.
func (m *MockStore) Locators() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	locators := make([]string, 0, len(m.values))
	for locator := range m.values {
		locators = append(locators, locator)
	}
	return locators, nil
}
