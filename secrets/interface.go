// Package secrets stores per-plugin secret configuration (API credentials
// and similar) outside the database. Secrets are keyed by plugin locator,
// injected into the sandbox at load time, and never pass through SQL
// arguments or results.
package secrets

// Store is a key-value secret store scoped per plugin locator.
type Store interface {
	// Get returns the secret key/value pairs for a locator. A locator with
	// no stored secrets yields an empty map, not an error.
	Get(locator string) (map[string]string, error)
	// Set replaces the secret key/value pairs for a locator.
	Set(locator string, values map[string]string) error
	// Locators returns every locator that has stored secrets.
	Locators() ([]string, error)
}
