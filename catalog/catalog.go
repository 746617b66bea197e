// Package catalog is the bridge's boundary with the host database engine.
// The bridge hands an engine synthesized function definitions; the engine
// owns installing them in its function catalog (create-or-replace, never
// duplicate) and running statements against them. Two engines ship here:
// an in-memory catalog for tests and an SQLite-backed one that makes the
// synthesized functions callable from real SQL.
package catalog

import (
	"context"

	"github.com/plugsql/plugsql/contract"
)

// Body is the runtime behavior of a synthesized function: it receives the
// call's arguments keyed by declared parameter name and returns the typed
// result extracted from the plugin's response.
type Body func(ctx context.Context, args map[string]any) (any, error)

// FailurePolicy selects what a synthesized function does when its body
// fails at call time. Registration failures are always hard errors; this
// policy only governs invocation.
type FailurePolicy int

const (
	// NullOnFailure collapses a failed invocation to a NULL result so the
	// calling statement survives transient sandbox faults. The failure
	// detail is recorded as a diagnostic, not surfaced to the caller.
	NullOnFailure FailurePolicy = iota
	// PropagateFailure fails the calling statement instead.
	PropagateFailure
)

// Param is one parameter of a synthesized function.
type Param struct {
	Name    string
	Type    contract.ValueType
	SQLType string
}

// Definition is a synthesized function ready to install: a typed signature
// derived from plugin metadata plus a bound body that marshals arguments
// into the call envelope, invokes the plugin and extracts the result. It
// is built field by field from validated metadata, never by concatenating
// untrusted text.
type Definition struct {
	// Name is the exposed function name callers will use.
	Name string
	// Locator identifies the plugin module the body invokes.
	Locator string
	// EntryPoint is the exported plugin function the body calls.
	EntryPoint string
	// ReturnField is the response key holding the result.
	ReturnField string
	// Params is the signature, ordered by parameter name. Ordering is
	// cosmetic: the body binds arguments by name through the envelope.
	Params []Param
	// ReturnType is the declared contract type tag of the result.
	ReturnType contract.ValueType
	// ReturnSQLType is ReturnType mapped to a column type.
	ReturnSQLType string
	// OnFailure governs invocation-time failures.
	OnFailure FailurePolicy
	// Body performs one invocation. Engines call it with arguments already
	// keyed by parameter name.
	Body Body
}

// Engine is the host database boundary: install (or replace) a callable
// function, and run a statement. Concurrency discipline over the catalog
// itself belongs to the engine, not to the bridge.
type Engine interface {
	// CreateFunction installs def under def.Name, replacing any prior
	// definition with that name.
	CreateFunction(ctx context.Context, def *Definition) error
	// Exec runs a single statement.
	Exec(ctx context.Context, stmt string, args ...any) error
}
