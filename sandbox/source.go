package sandbox

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	extism "github.com/extism/go-sdk"
)

// SourceResolver turns a locator into a wasm source the runtime can load.
//
// Resolvers are registered per locator scheme. A locator with no scheme is
// treated as a filesystem path.
type SourceResolver func(locator string) (extism.Wasm, error)

var (
	// sourceRegistry stores resolvers by locator scheme
	sourceRegistry = make(map[string]SourceResolver)
	// sourceRegistryMu protects concurrent access to the registry
	sourceRegistryMu sync.RWMutex
)

// RegisterSource registers a resolver for a locator scheme.
//
// This should be called from init() functions. The scheme is the part of
// the locator before "://"; the empty string registers the resolver used
// for plain filesystem paths.
func RegisterSource(scheme string, resolver SourceResolver) {
	sourceRegistryMu.Lock()
	defer sourceRegistryMu.Unlock()
	sourceRegistry[scheme] = resolver
}

// RegisteredSchemes returns all registered locator schemes.
func RegisteredSchemes() []string {
	sourceRegistryMu.RLock()
	defer sourceRegistryMu.RUnlock()
	schemes := make([]string, 0, len(sourceRegistry))
	for scheme := range sourceRegistry {
		schemes = append(schemes, scheme)
	}
	return schemes
}

func init() {
	RegisterSource("", func(locator string) (extism.Wasm, error) {
		return extism.WasmFile{Path: locator}, nil
	})
	RegisterSource("file", func(locator string) (extism.Wasm, error) {
		return extism.WasmFile{Path: strings.TrimPrefix(locator, "file://")}, nil
	})
	RegisterSource("http", func(locator string) (extism.Wasm, error) {
		return extism.WasmUrl{Url: locator}, nil
	})
	RegisterSource("https", func(locator string) (extism.Wasm, error) {
		return extism.WasmUrl{Url: locator}, nil
	})
	// data locators carry the module inline, base64 encoded. Tests and
	// tooling use them to load modules without touching the filesystem.
	RegisterSource("data", func(locator string) (extism.Wasm, error) {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(locator, "data://"))
		if err != nil {
			return nil, fmt.Errorf("invalid base64 in data locator: %w", err)
		}
		return extism.WasmData{Data: raw}, nil
	})
}

// resolveSource finds the resolver for the locator's scheme and applies it.
func resolveSource(locator string) (extism.Wasm, error) {
	scheme := ""
	if i := strings.Index(locator, "://"); i >= 0 {
		scheme = locator[:i]
	}

	sourceRegistryMu.RLock()
	resolver, ok := sourceRegistry[scheme]
	sourceRegistryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no source resolver registered for scheme: %s", scheme)
	}
	return resolver(locator)
}
