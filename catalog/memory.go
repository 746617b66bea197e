package catalog

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// MemoryEngine is an in-memory function catalog. It implements the same
// create-or-replace and statement surface a real engine does and is used
// by tests and by the CLI when no database is configured.
type MemoryEngine struct {
	mu     sync.RWMutex
	funcs  map[string]*Definition
	stmts  []string
	logger *zap.Logger
}

// NewMemoryEngine creates an empty in-memory catalog. A nil logger
// disables diagnostics.
func NewMemoryEngine(logger *zap.Logger) *MemoryEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryEngine{
		funcs:  make(map[string]*Definition),
		logger: logger,
	}
}

// CreateFunction installs def, replacing any prior definition under the
// same name.
func (e *MemoryEngine) CreateFunction(_ context.Context, def *Definition) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("definition must have a name")
	}
	e.mu.Lock()
	e.funcs[def.Name] = def
	e.mu.Unlock()
	return nil
}

// Exec records the statement. The in-memory engine has no SQL executor;
// recording keeps the boundary observable in tests.
func (e *MemoryEngine) Exec(_ context.Context, stmt string, _ ...any) error {
	e.mu.Lock()
	e.stmts = append(e.stmts, stmt)
	e.mu.Unlock()
	return nil
}

// Statements returns every statement passed to Exec, in order.
func (e *MemoryEngine) Statements() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.stmts...)
}

// Lookup returns the installed definition with the given name.
func (e *MemoryEngine) Lookup(name string) (*Definition, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	def, ok := e.funcs[name]
	return def, ok
}

// Call invokes an installed function the way a SQL statement would:
// positional arguments are bound to the signature's parameter names and
// the definition's failure policy decides what a body failure becomes.
func (e *MemoryEngine) Call(ctx context.Context, name string, args ...any) (any, error) {
	def, ok := e.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("function %s does not exist", name)
	}
	if len(args) != len(def.Params) {
		return nil, fmt.Errorf("function %s expects %d arguments, got %d", name, len(def.Params), len(args))
	}

	named := make(map[string]any, len(args))
	for i, p := range def.Params {
		named[p.Name] = args[i]
	}

	result, err := def.Body(ctx, named)
	if err != nil {
		if def.OnFailure == PropagateFailure {
			return nil, err
		}
		e.logger.Warn("plugin call failed, returning NULL",
			zap.String("function", name),
			zap.String("locator", def.Locator),
			zap.Error(err))
		return nil, nil
	}
	return result, nil
}
