package sandbox

import "fmt"

// LoadError reports a failure to build a sandboxed instance for a plugin
// module: the locator could not be resolved, the module bytes were invalid,
// or the module exceeded its configured resources.
type LoadError struct {
	Locator string
	Detail  string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("loading plugin %s: %s: %v", e.Locator, e.Detail, e.Err)
	}
	return fmt.Sprintf("loading plugin %s: %s", e.Locator, e.Detail)
}

func (e *LoadError) Unwrap() error { return e.Err }

// CallErrorKind classifies how a sandboxed call failed.
type CallErrorKind int

const (
	// CallTimeout means the call exceeded the configured wall-clock budget
	// and was forcibly terminated.
	CallTimeout CallErrorKind = iota
	// CallTrap covers everything the guest did wrong: invalid memory
	// access, unimplemented imports, denied network or filesystem access,
	// and explicit plugin errors.
	CallTrap
	// CallMissingFunction means the module does not export the requested
	// function.
	CallMissingFunction
)

func (k CallErrorKind) String() string {
	switch k {
	case CallTimeout:
		return "timeout"
	case CallTrap:
		return "trap"
	case CallMissingFunction:
		return "missing function"
	}
	return "unknown"
}

// CallError reports a failed sandboxed call. It is always returned to the
// caller; no guest failure is allowed to crash the host process.
type CallError struct {
	Kind     CallErrorKind
	Function string
	Detail   string
	Err      error
}

func (e *CallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("calling %s: %s: %s: %v", e.Function, e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("calling %s: %s: %s", e.Function, e.Kind, e.Detail)
}

func (e *CallError) Unwrap() error { return e.Err }
