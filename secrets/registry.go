package secrets

import (
	"fmt"
	"sync"
)

// StoreFactory is a function that creates a new Store instance.
//
// Factory functions are registered with RegisterStore and are called when
// a store for that backend is needed.
type StoreFactory func() (Store, error)

var (
	// registry stores store factories by backend identifier
	registry = make(map[string]StoreFactory)
	// registryMu protects concurrent access to the registry
	registryMu sync.RWMutex
)

// RegisterStore registers a store factory for a given backend identifier.
//
// This should be called from init() functions in backend implementations.
// The backend parameter is a string like "keyring" or "mock".
func RegisterStore(backend string, factory StoreFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[backend] = factory
}

// NewStore creates a Store for the given backend identifier.
//
// Returns an error if no factory is registered for the backend.
func NewStore(backend string) (Store, error) {
	registryMu.RLock()
	factory, ok := registry[backend]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no secret store registered for backend: %s", backend)
	}
	return factory()
}

// ListRegisteredBackends returns all registered backend identifiers.
func ListRegisteredBackends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	backends := make([]string, 0, len(registry))
	for backend := range registry {
		backends = append(backends, backend)
	}
	return backends
}
