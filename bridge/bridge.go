// Package bridge connects sandboxed WASM plugins to a SQL engine's
// function catalog. Registration introspects a plugin's self-declared
// contract and synthesizes a typed, callable function from it; invocation
// marshals that function's arguments into the plugin's call envelope, runs
// the plugin inside its sandbox and extracts the typed result.
//
// Registration failures are hard errors: an operator must learn
// immediately that a plugin's contract is broken. Invocation failures are
// governed by the installed definition's failure policy; by default they
// collapse to NULL with a logged diagnostic so application queries survive
// transient sandbox faults.
package bridge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/plugsql/plugsql/catalog"
	"github.com/plugsql/plugsql/contract"
	"github.com/plugsql/plugsql/sandbox"
	"github.com/plugsql/plugsql/secrets"
)

// PluginHandle is one loaded sandboxed plugin instance.
//
// It is the view of sandbox.Handle the bridge depends on; tests substitute
// fakes so registration and invocation logic can be exercised without a
// compiled wasm module.
type PluginHandle interface {
	// Call invokes an exported function and returns its output bytes.
	Call(ctx context.Context, name string, input []byte) ([]byte, error)
	// HasFunction reports whether the module exports the named function.
	HasFunction(name string) bool
	// Close releases the instance.
	Close(ctx context.Context) error
}

// PluginLauncher loads plugin modules into sandboxed instances.
type PluginLauncher interface {
	Load(ctx context.Context, locator string, cfg sandbox.Config) (PluginHandle, error)
}

// launcherAdapter lifts the concrete sandbox launcher to the interface.
type launcherAdapter struct {
	launcher *sandbox.Launcher
}

func (a launcherAdapter) Load(ctx context.Context, locator string, cfg sandbox.Config) (PluginHandle, error) {
	handle, err := a.launcher.Load(ctx, locator, cfg)
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// WrapLauncher adapts a sandbox.Launcher to the PluginLauncher interface.
func WrapLauncher(l *sandbox.Launcher) PluginLauncher {
	return launcherAdapter{launcher: l}
}

// Options configures a Bridge. Launcher and Engine are required; everything
// else has a working zero value.
type Options struct {
	// Launcher loads plugin modules.
	Launcher PluginLauncher
	// Engine owns the function catalog definitions are installed into.
	Engine catalog.Engine
	// Secrets supplies per-locator secret config injected at load time.
	// Nil means no secrets.
	Secrets secrets.Store
	// SandboxDefaults is the baseline sandbox configuration applied to
	// every plugin.
	SandboxDefaults sandbox.Config
	// SandboxOverrides replaces the defaults for specific locators.
	SandboxOverrides map[string]sandbox.Config
	// Policy is applied to every synthesized definition.
	Policy catalog.FailurePolicy
	// Logger receives diagnostics. Nil disables them.
	Logger *zap.Logger
}

// Bridge performs plugin registration and owns the invoker the synthesized
// functions call at runtime.
type Bridge struct {
	launcher PluginLauncher
	engine   catalog.Engine
	invoker  *Invoker
	policy   catalog.FailurePolicy
	logger   *zap.Logger
}

// New creates a Bridge from opts.
func New(opts Options) (*Bridge, error) {
	if opts.Launcher == nil {
		return nil, fmt.Errorf("bridge requires a plugin launcher")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("bridge requires a catalog engine")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	invoker := NewInvoker(opts.Launcher, opts.Secrets, opts.SandboxDefaults, logger)
	invoker.overrides = opts.SandboxOverrides

	return &Bridge{
		launcher: opts.Launcher,
		engine:   opts.Engine,
		invoker:  invoker,
		policy:   opts.Policy,
		logger:   logger,
	}, nil
}

// Invoker returns the bridge's invocation adapter.
func (b *Bridge) Invoker() *Invoker { return b.invoker }

// Define introspects the plugin at locator and installs a callable
// function named exposedName in the engine's catalog. Re-defining an
// existing name replaces the prior definition. Any contract problem is a
// hard error and nothing is installed.
func (b *Bridge) Define(ctx context.Context, locator, exposedName string) error {
	md, err := b.Metadata(ctx, locator)
	if err != nil {
		return err
	}

	def, err := Synthesize(locator, exposedName, md, b.invoker)
	if err != nil {
		return fmt.Errorf("synthesizing %s from %s: %w", exposedName, locator, err)
	}
	def.OnFailure = b.policy

	if err := b.engine.CreateFunction(ctx, def); err != nil {
		return fmt.Errorf("installing %s: %w", exposedName, err)
	}

	b.logger.Info("plugin function defined",
		zap.String("function", exposedName),
		zap.String("locator", locator),
		zap.String("entry_point", md.EntryPoint),
		zap.Int("parameters", len(md.Parameters)))
	return nil
}

// Metadata loads the plugin at locator and resolves its contract.
func (b *Bridge) Metadata(ctx context.Context, locator string) (md *contract.Metadata, err error) {
	handle, err := b.launcher.Load(ctx, locator, b.invoker.configFor(locator))
	if err != nil {
		return nil, fmt.Errorf("loading plugin %s: %w", locator, err)
	}
	defer func() {
		if cerr := handle.Close(ctx); cerr != nil && err == nil {
			err = fmt.Errorf("closing plugin %s: %w", locator, cerr)
		}
	}()

	md, err = Resolve(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("resolving contract of %s: %w", locator, err)
	}
	return md, nil
}
