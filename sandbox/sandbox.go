// Package sandbox builds restricted execution environments for untrusted
// WASM plugins using the Extism SDK. A loaded handle enforces a memory
// ceiling, a network host allow-list, a filesystem path allow-list and a
// wall-clock timeout on every call, and injects configured secrets as
// guest-visible config that is never exposed to SQL callers.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	extism "github.com/extism/go-sdk"
	"go.uber.org/zap"
)

// Config describes the restricted environment for one loaded plugin module.
// It is fixed at load time; every call made through the resulting handle
// runs under the same limits regardless of caller-supplied arguments.
type Config struct {
	// MemoryMaxPages caps the module's linear memory in 64KiB wasm pages.
	// Zero leaves the runtime default in place.
	MemoryMaxPages uint32
	// AllowedHosts is the network allow-list. Hosts may use glob patterns
	// (e.g. "*.example.com"). An empty list denies all network access.
	AllowedHosts []string
	// AllowedPaths maps host paths to guest paths. Anything outside the
	// map is invisible to the plugin.
	AllowedPaths map[string]string
	// Timeout is the wall-clock budget per call. On expiry the in-flight
	// call is killed and reported as a timeout.
	Timeout time.Duration
	// Secrets are key/value pairs injected as plugin config (e.g. API
	// credentials). They are readable inside the guest only.
	Secrets map[string]string
}

// Clone returns a deep copy so a shared default Config can be specialized
// per plugin without aliasing the originals' maps and slices.
func (c Config) Clone() Config {
	out := c
	out.AllowedHosts = append([]string(nil), c.AllowedHosts...)
	if c.AllowedPaths != nil {
		out.AllowedPaths = make(map[string]string, len(c.AllowedPaths))
		for k, v := range c.AllowedPaths {
			out.AllowedPaths[k] = v
		}
	}
	if c.Secrets != nil {
		out.Secrets = make(map[string]string, len(c.Secrets))
		for k, v := range c.Secrets {
			out.Secrets[k] = v
		}
	}
	return out
}

// manifestFor translates a locator and Config into the Extism manifest that
// enforces them. The manifest is the single place sandbox limits are
// declared; nothing is patched in later.
func manifestFor(locator string, cfg Config) (extism.Manifest, error) {
	source, err := resolveSource(locator)
	if err != nil {
		return extism.Manifest{}, err
	}

	manifest := extism.Manifest{
		Wasm:         []extism.Wasm{source},
		AllowedHosts: append([]string(nil), cfg.AllowedHosts...),
		AllowedPaths: cfg.AllowedPaths,
		Config:       cfg.Secrets,
	}
	if cfg.MemoryMaxPages > 0 {
		manifest.Memory = &extism.ManifestMemory{MaxPages: cfg.MemoryMaxPages}
	}
	if cfg.Timeout > 0 {
		manifest.Timeout = uint64(cfg.Timeout.Milliseconds())
	}
	return manifest, nil
}

// Launcher loads plugin modules into sandboxed instances.
type Launcher struct {
	logger *zap.Logger
}

// NewLauncher creates a Launcher. A nil logger disables diagnostics.
func NewLauncher(logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{logger: logger}
}

// Load builds a sandboxed instance for the module at locator under cfg.
// Failures are reported as *LoadError; the module never runs outside the
// configured limits.
func (l *Launcher) Load(ctx context.Context, locator string, cfg Config) (*Handle, error) {
	manifest, err := manifestFor(locator, cfg)
	if err != nil {
		return nil, &LoadError{Locator: locator, Detail: "unresolvable locator", Err: err}
	}

	plugin, err := extism.NewPlugin(ctx, manifest, extism.PluginConfig{EnableWasi: true}, nil)
	if err != nil {
		return nil, &LoadError{Locator: locator, Detail: "module rejected by runtime", Err: err}
	}

	l.logger.Debug("plugin loaded",
		zap.String("locator", locator),
		zap.Uint32("memory_max_pages", cfg.MemoryMaxPages),
		zap.Strings("allowed_hosts", cfg.AllowedHosts),
		zap.Duration("timeout", cfg.Timeout))

	return &Handle{
		locator: locator,
		plugin:  plugin,
		timeout: cfg.Timeout,
	}, nil
}

// Handle is one sandboxed plugin instance. A handle must not be shared by
// concurrent calls; its configuration is immutable for its lifetime.
type Handle struct {
	locator string
	plugin  *extism.Plugin
	timeout time.Duration
}

// Locator returns the locator the handle was loaded from.
func (h *Handle) Locator() string { return h.locator }

// HasFunction reports whether the module exports a function with the
// given name.
func (h *Handle) HasFunction(name string) bool {
	return h.plugin.FunctionExists(name)
}

// Call invokes an exported function with input and returns its output
// bytes. It blocks until the function completes, traps, or the configured
// timeout kills it; all failures come back as *CallError.
func (h *Handle) Call(ctx context.Context, name string, input []byte) ([]byte, error) {
	if !h.HasFunction(name) {
		return nil, &CallError{
			Kind:     CallMissingFunction,
			Function: name,
			Detail:   fmt.Sprintf("plugin %s does not export %q", h.locator, name),
		}
	}

	start := time.Now()
	exitCode, output, err := h.plugin.CallWithContext(ctx, name, input)
	if err != nil {
		kind := CallTrap
		if h.expired(ctx, err, time.Since(start)) {
			kind = CallTimeout
		}
		return nil, &CallError{Kind: kind, Function: name, Detail: "call failed", Err: err}
	}
	if exitCode != 0 {
		return nil, &CallError{
			Kind:     CallTrap,
			Function: name,
			Detail:   fmt.Sprintf("plugin exited with code %d", exitCode),
		}
	}
	return output, nil
}

// expired reports whether a call failure was the timeout firing rather
// than a guest trap. The runtime kills timed-out calls by closing the
// module, so the error itself does not always carry a deadline sentinel.
func (h *Handle) expired(ctx context.Context, err error, elapsed time.Duration) bool {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return true
	}
	return h.timeout > 0 && elapsed >= h.timeout
}

// Close releases the instance. The handle must not be used afterwards.
func (h *Handle) Close(ctx context.Context) error {
	if h.plugin == nil {
		return nil
	}
	return h.plugin.Close(ctx)
}
