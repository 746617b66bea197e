package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/plugsql/plugsql/sandbox"
	"github.com/plugsql/plugsql/secrets"
)

// InvokeErrorKind classifies which stage of an invocation failed.
type InvokeErrorKind int

const (
	// InvokeLoadFailed means the sandboxed instance could not be built.
	InvokeLoadFailed InvokeErrorKind = iota
	// InvokeCallFailed means the entry point call failed; the wrapped
	// error is the sandbox's CallError.
	InvokeCallFailed
	// InvokeBadEncoding means the plugin returned bytes that are not
	// valid UTF-8.
	InvokeBadEncoding
	// InvokeBadJSON means the plugin's response was not valid JSON.
	InvokeBadJSON
)

func (k InvokeErrorKind) String() string {
	switch k {
	case InvokeLoadFailed:
		return "load failed"
	case InvokeCallFailed:
		return "call failed"
	case InvokeBadEncoding:
		return "response is not UTF-8"
	case InvokeBadJSON:
		return "response is not JSON"
	}
	return "unknown"
}

// InvokeError reports a failed plugin invocation. The synthesized function
// that receives it applies its failure policy; the original detail is
// preserved here and in the diagnostic log for operators.
type InvokeError struct {
	Kind       InvokeErrorKind
	Locator    string
	EntryPoint string
	Err        error
}

func (e *InvokeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invoking %s in %s: %s: %v", e.EntryPoint, e.Locator, e.Kind, e.Err)
	}
	return fmt.Sprintf("invoking %s in %s: %s", e.EntryPoint, e.Locator, e.Kind)
}

func (e *InvokeError) Unwrap() error { return e.Err }

// Invoker is the runtime counterpart of the synthesized functions: given a
// plugin locator, an entry point and an argument object, it launches the
// sandbox, calls the entry point and parses the result as JSON.
//
// Instances are load-call-discard: every invocation builds a fresh
// sandboxed instance and closes it when the call returns, so no linear
// memory is ever shared between calls.
type Invoker struct {
	launcher  PluginLauncher
	store     secrets.Store
	defaults  sandbox.Config
	overrides map[string]sandbox.Config
	logger    *zap.Logger
}

// NewInvoker creates an Invoker. store may be nil when no plugin needs
// secrets; a nil logger disables diagnostics.
func NewInvoker(launcher PluginLauncher, store secrets.Store, defaults sandbox.Config, logger *zap.Logger) *Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{
		launcher: launcher,
		store:    store,
		defaults: defaults,
		logger:   logger,
	}
}

// configFor assembles the sandbox configuration for one locator: the
// configured defaults (or a per-locator override) plus the locator's
// stored secrets. Caller arguments never influence the result.
func (in *Invoker) configFor(locator string) sandbox.Config {
	cfg, ok := in.overrides[locator]
	if !ok {
		cfg = in.defaults
	}
	cfg = cfg.Clone()

	if in.store != nil {
		values, err := in.store.Get(locator)
		if err != nil {
			// A broken secret store must not widen the sandbox; the call
			// proceeds without secrets and the plugin fails on its own
			// terms if it needs them.
			in.logger.Warn("secret lookup failed",
				zap.String("locator", locator),
				zap.Error(err))
		} else if len(values) > 0 {
			if cfg.Secrets == nil {
				cfg.Secrets = make(map[string]string, len(values))
			}
			for k, v := range values {
				cfg.Secrets[k] = v
			}
		}
	}
	return cfg
}

// Invoke runs one plugin call: serialize args, load the sandbox, call the
// entry point, decode the response as UTF-8 JSON. Every failure is logged
// with its stage before being returned as an *InvokeError.
func (in *Invoker) Invoke(ctx context.Context, locator, entryPoint string, args map[string]any) (gjson.Result, error) {
	input, err := json.Marshal(args)
	if err != nil {
		return gjson.Result{}, in.fail(&InvokeError{
			Kind: InvokeBadJSON, Locator: locator, EntryPoint: entryPoint, Err: err,
		})
	}

	handle, err := in.launcher.Load(ctx, locator, in.configFor(locator))
	if err != nil {
		return gjson.Result{}, in.fail(&InvokeError{
			Kind: InvokeLoadFailed, Locator: locator, EntryPoint: entryPoint, Err: err,
		})
	}
	defer func() {
		if cerr := handle.Close(ctx); cerr != nil {
			in.logger.Warn("closing plugin instance failed",
				zap.String("locator", locator),
				zap.Error(cerr))
		}
	}()

	output, err := handle.Call(ctx, entryPoint, input)
	if err != nil {
		return gjson.Result{}, in.fail(&InvokeError{
			Kind: InvokeCallFailed, Locator: locator, EntryPoint: entryPoint, Err: err,
		})
	}

	if !utf8.Valid(output) {
		return gjson.Result{}, in.fail(&InvokeError{
			Kind: InvokeBadEncoding, Locator: locator, EntryPoint: entryPoint,
		})
	}
	if !gjson.ValidBytes(output) {
		return gjson.Result{}, in.fail(&InvokeError{
			Kind: InvokeBadJSON, Locator: locator, EntryPoint: entryPoint,
		})
	}

	return gjson.ParseBytes(output), nil
}

// fail logs the diagnostic line that preserves failure detail for
// operators, then hands the error back for the policy layer to collapse.
func (in *Invoker) fail(err *InvokeError) error {
	in.logger.Warn("plugin invocation failed",
		zap.String("locator", err.Locator),
		zap.String("entry_point", err.EntryPoint),
		zap.String("stage", err.Kind.String()),
		zap.Error(err.Err))
	return err
}
