package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"

	"go.uber.org/zap"
	sqlite "modernc.org/sqlite"
)

// SQLiteEngine installs synthesized functions as SQLite scalar functions
// so that ordinary SQL statements can call them. It uses the pure-Go
// modernc driver, which registers Go functions process-wide at connection
// setup; the engine routes every registered name through a small dispatch
// shim so that redefining a function is a true replacement even though the
// driver's own registry is append-only.
type SQLiteEngine struct {
	db     *sql.DB
	logger *zap.Logger
}

// registrations is process-global to mirror the driver's registry. Each
// entry owns the mutable binding for one function name.
var (
	registrationsMu sync.Mutex
	registrations   = make(map[string]*registration)
)

type registration struct {
	mu     sync.RWMutex
	def    *Definition
	logger *zap.Logger
}

// NewSQLiteEngine opens (or creates) the database at dsn. Use ":memory:"
// for an ephemeral catalog.
func NewSQLiteEngine(dsn string, logger *zap.Logger) (*SQLiteEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// The driver binds registered functions when a connection is created.
	// Keeping no idle connections forces fresh connections, so statements
	// always see functions registered after the database was opened.
	db.SetMaxIdleConns(0)

	return &SQLiteEngine{db: db, logger: logger}, nil
}

// DB exposes the underlying database for callers that need queries rather
// than bare statements.
func (e *SQLiteEngine) DB() *sql.DB { return e.db }

// Close closes the database.
func (e *SQLiteEngine) Close() error { return e.db.Close() }

// CreateFunction installs def under def.Name, replacing any previous
// definition with that name. The signature is registered as variadic and
// arity is checked at call time, so a replacement may change the
// parameter list.
func (e *SQLiteEngine) CreateFunction(_ context.Context, def *Definition) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("definition must have a name")
	}

	registrationsMu.Lock()
	defer registrationsMu.Unlock()

	reg, ok := registrations[def.Name]
	if !ok {
		reg = &registration{}
		if err := sqlite.RegisterScalarFunction(def.Name, -1, reg.invoke); err != nil {
			return fmt.Errorf("registering function %s: %w", def.Name, err)
		}
		registrations[def.Name] = reg
	}

	reg.mu.Lock()
	reg.def = def
	reg.logger = e.logger
	reg.mu.Unlock()

	e.logger.Info("function installed",
		zap.String("function", def.Name),
		zap.String("locator", def.Locator),
		zap.Int("parameters", len(def.Params)))
	return nil
}

// Exec runs a single statement.
func (e *SQLiteEngine) Exec(ctx context.Context, stmt string, args ...any) error {
	_, err := e.db.ExecContext(ctx, stmt, args...)
	return err
}

// invoke is the dispatch shim bound into the driver. It converts driver
// values into the call envelope's shapes, runs the current definition's
// body, and applies the definition's failure policy.
func (r *registration) invoke(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	r.mu.RLock()
	def := r.def
	logger := r.logger
	r.mu.RUnlock()

	if def == nil {
		return nil, fmt.Errorf("function is not defined")
	}
	if len(args) != len(def.Params) {
		return nil, fmt.Errorf("function %s expects %d arguments, got %d",
			def.Name, len(def.Params), len(args))
	}

	named := make(map[string]any, len(args))
	for i, p := range def.Params {
		v, err := envelopeValue(args[i], p.Type)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", p.Name, err)
		}
		named[p.Name] = v
	}

	result, err := def.Body(context.Background(), named)
	if err != nil {
		if def.OnFailure == PropagateFailure {
			return nil, err
		}
		if logger != nil {
			logger.Warn("plugin call failed, returning NULL",
				zap.String("function", def.Name),
				zap.String("locator", def.Locator),
				zap.Error(err))
		}
		return nil, nil
	}

	return columnValue(result, def.ReturnType)
}
