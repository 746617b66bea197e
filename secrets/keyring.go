package secrets

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

func init() {
	RegisterStore("keyring", func() (Store, error) {
		return NewKeyringStore()
	})
}

// KeyringStore keeps secrets in the OS keystore (Keychain, libsecret,
// Credential Manager) via the keyring library. Each locator maps to one
// item whose data is a JSON object of secret key/value pairs.
type KeyringStore struct {
	ring keyring.Keyring
}

// NewKeyringStore opens the platform keystore.
func NewKeyringStore() (*KeyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: "plugsql",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return &KeyringStore{ring: ring}, nil
}

// newKeyringStoreWithRing wires an explicit keyring, e.g. an in-memory one
// in tests.
func newKeyringStoreWithRing(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

// Get returns the secrets stored for locator, or an empty map if none are.
func (s *KeyringStore) Get(locator string) (map[string]string, error) {
	item, err := s.ring.Get(locator)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets for %s: %w", locator, err)
	}

	// Work on a private copy; item.Data may be backend-owned storage.
	data := append([]byte(nil), item.Data...)
	defer zeroize(data)

	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("corrupt secret entry for %s: %w", locator, err)
	}
	return values, nil
}

// Set replaces the secrets stored for locator.
func (s *KeyringStore) Set(locator string, values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode secrets: %w", err)
	}
	defer zeroize(data)

	err = s.ring.Set(keyring.Item{
		Key:   locator,
		Data:  append([]byte(nil), data...),
		Label: "plugsql secrets for " + locator,
	})
	if err != nil {
		return fmt.Errorf("failed to store secrets for %s: %w", locator, err)
	}
	return nil
}

// Locators returns every locator with stored secrets.
func (s *KeyringStore) Locators() ([]string, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to list secret entries: %w", err)
	}
	return keys, nil
}
