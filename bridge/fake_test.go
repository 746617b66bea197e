package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/plugsql/plugsql/sandbox"
)

// fakeHandle is an in-memory PluginHandle. Exports map function names to
// bodies; a nil body still counts as exported to test has-but-fails paths.
type fakeHandle struct {
	exports map[string]func(input []byte) ([]byte, error)

	mu       sync.Mutex
	closed   bool
	closeErr error
}

func (h *fakeHandle) HasFunction(name string) bool {
	_, ok := h.exports[name]
	return ok
}

func (h *fakeHandle) Call(_ context.Context, name string, input []byte) ([]byte, error) {
	body, ok := h.exports[name]
	if !ok {
		return nil, &sandbox.CallError{Kind: sandbox.CallMissingFunction, Function: name}
	}
	return body(input)
}

func (h *fakeHandle) Close(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return h.closeErr
}

func (h *fakeHandle) wasClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// fakeLauncher hands out fakeHandles and records every load so tests can
// assert on instance lifecycle and on the sandbox config each load got.
type fakeLauncher struct {
	handleFor func(locator string) *fakeHandle
	loadErr   error

	mu      sync.Mutex
	loads   int
	lastCfg sandbox.Config
	handles []*fakeHandle
}

func (l *fakeLauncher) Load(_ context.Context, locator string, cfg sandbox.Config) (PluginHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++
	l.lastCfg = cfg
	if l.loadErr != nil {
		return nil, l.loadErr
	}
	handle := l.handleFor(locator)
	l.handles = append(l.handles, handle)
	return handle, nil
}

func (l *fakeLauncher) loadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

func (l *fakeLauncher) lastConfig() sandbox.Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastCfg
}

// staticLauncher returns a launcher that always serves the same handle.
func staticLauncher(h *fakeHandle) *fakeLauncher {
	return &fakeLauncher{handleFor: func(string) *fakeHandle { return h }}
}

// freshLauncher returns a launcher that builds a new handle per load, the
// way the real launcher does.
func freshLauncher(exports map[string]func([]byte) ([]byte, error)) *fakeLauncher {
	return &fakeLauncher{handleFor: func(string) *fakeHandle {
		return &fakeHandle{exports: exports}
	}}
}

// contractExports builds an export table for a plugin declaring the given
// metadata document and answering entryPoint with body.
func contractExports(metadata string, entryPoint string, body func([]byte) ([]byte, error)) map[string]func([]byte) ([]byte, error) {
	exports := map[string]func([]byte) ([]byte, error){
		"metadata": func([]byte) ([]byte, error) { return []byte(metadata), nil },
	}
	if entryPoint != "" {
		exports[entryPoint] = body
	}
	return exports
}

// defaultSandbox is the baseline config tests hand to invokers. The values
// mirror the documented defaults but nothing here depends on them.
func defaultSandbox() sandbox.Config {
	return sandbox.Config{
		MemoryMaxPages: 5,
		AllowedHosts:   []string{"api.openai.com"},
		AllowedPaths:   map[string]string{"/": "/"},
		Timeout:        10 * time.Second,
	}
}

// failingStore implements secrets.Store and fails every lookup.
type failingStore struct{}

func (failingStore) Get(string) (map[string]string, error) {
	return nil, fmt.Errorf("backend unavailable")
}

func (failingStore) Set(string, map[string]string) error {
	return fmt.Errorf("backend unavailable")
}

func (failingStore) Locators() ([]string, error) {
	return nil, fmt.Errorf("backend unavailable")
}
