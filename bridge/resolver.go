package bridge

import (
	"context"
	"fmt"

	"github.com/plugsql/plugsql/contract"
)

// metadataFunction is the export every conformant plugin must expose.
const metadataFunction = "metadata"

// MetadataErrorKind classifies why a plugin's contract could not be
// resolved.
type MetadataErrorKind int

const (
	// NoContract means the plugin does not export a metadata function.
	NoContract MetadataErrorKind = iota
	// MetadataCallFailed means the metadata call itself failed.
	MetadataCallFailed
	// MetadataMalformed means the returned bytes were not a valid
	// contract document.
	MetadataMalformed
	// MissingEntryPoint means the declared entry point is empty or not
	// exported by the module.
	MissingEntryPoint
	// InvalidIdentifier means a declared parameter name cannot be used as
	// a SQL identifier.
	InvalidIdentifier
)

func (k MetadataErrorKind) String() string {
	switch k {
	case NoContract:
		return "no contract"
	case MetadataCallFailed:
		return "metadata call failed"
	case MetadataMalformed:
		return "malformed metadata"
	case MissingEntryPoint:
		return "missing entry point"
	case InvalidIdentifier:
		return "invalid identifier"
	}
	return "unknown"
}

// MetadataError reports a broken plugin contract. It always aborts the
// registration that encountered it.
type MetadataError struct {
	Kind   MetadataErrorKind
	Detail string
	Err    error
}

func (e *MetadataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// Resolve asks a loaded plugin for its contract and validates it. The
// returned metadata is safe to hand to the synthesizer: the schema held,
// the entry point exists on the module, and every parameter name is a
// legal identifier.
func Resolve(ctx context.Context, handle PluginHandle) (*contract.Metadata, error) {
	if !handle.HasFunction(metadataFunction) {
		return nil, &MetadataError{
			Kind:   NoContract,
			Detail: fmt.Sprintf("plugin does not export a %q function", metadataFunction),
		}
	}

	raw, err := handle.Call(ctx, metadataFunction, nil)
	if err != nil {
		return nil, &MetadataError{Kind: MetadataCallFailed, Detail: "metadata query failed", Err: err}
	}

	if err := contract.ValidateRaw(raw); err != nil {
		return nil, &MetadataError{Kind: MetadataMalformed, Detail: "schema validation failed", Err: err}
	}

	md, err := contract.Decode(raw)
	if err != nil {
		return nil, &MetadataError{Kind: MetadataMalformed, Detail: "decoding failed", Err: err}
	}

	if md.EntryPoint == "" {
		return nil, &MetadataError{Kind: MissingEntryPoint, Detail: "entry point is empty"}
	}
	if !handle.HasFunction(md.EntryPoint) {
		return nil, &MetadataError{
			Kind:   MissingEntryPoint,
			Detail: fmt.Sprintf("plugin does not export declared entry point %q", md.EntryPoint),
		}
	}

	for _, p := range md.Parameters {
		if !contract.ValidIdentifier(p.Name) {
			return nil, &MetadataError{
				Kind:   InvalidIdentifier,
				Detail: fmt.Sprintf("parameter name %q is not a valid identifier", p.Name),
			}
		}
	}

	return md, nil
}
