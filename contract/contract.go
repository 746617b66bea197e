// Package contract defines the calling contract every plugin must expose.
// A plugin declares its entry point, parameter types, return type and the
// response field holding its result; the bridge uses that declaration to
// synthesize a typed SQL function. The wire format matches what plugins
// emit from their exported metadata function: camelCase keys and a closed
// set of type tags.
package contract

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ValueType is one tag out of the closed set a plugin may declare for a
// parameter or return value. Every tag maps 1:1 to a SQL column type; a tag
// outside the set is a hard error at registration time, never a silent
// default.
type ValueType string

const (
	TypeString      ValueType = "String"
	TypeNumber      ValueType = "Number"
	TypeJSON        ValueType = "Json"
	TypeStringArray ValueType = "StringArray"
	TypeNumberArray ValueType = "NumberArray"
	TypeJSONArray   ValueType = "JsonArray"
)

// ValueTypes lists every valid tag. The order is stable and is the order
// used in the metadata schema.
func ValueTypes() []ValueType {
	return []ValueType{
		TypeString,
		TypeNumber,
		TypeJSON,
		TypeStringArray,
		TypeNumberArray,
		TypeJSONArray,
	}
}

// Valid reports whether t is a member of the closed tag set.
func (t ValueType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeJSON, TypeStringArray, TypeNumberArray, TypeJSONArray:
		return true
	}
	return false
}

// UnmarshalJSON decodes a type tag and rejects anything outside the closed
// set. Plugins are untrusted, so an unknown tag must fail the registration
// rather than decode into a zero value.
func (t *ValueType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("type tag must be a string: %w", err)
	}
	v := ValueType(s)
	if !v.Valid() {
		return fmt.Errorf("unknown type tag %q", s)
	}
	*t = v
	return nil
}

// SQLType returns the SQL column type for the tag. The mapping is total
// over the valid tags and errors on anything else, so a corrupted tag can
// never reach generated SQL.
func (t ValueType) SQLType() (string, error) {
	switch t {
	case TypeString:
		return "TEXT", nil
	case TypeNumber:
		return "NUMERIC", nil
	case TypeJSON:
		return "JSON", nil
	case TypeStringArray:
		return "TEXT[]", nil
	case TypeNumberArray:
		return "NUMERIC[]", nil
	case TypeJSONArray:
		return "JSON[]", nil
	}
	return "", fmt.Errorf("no SQL type mapping for tag %q", string(t))
}

// ValueTypeFromSQL is the inverse of SQLType. Unmapped column types are an
// error for the same reason unmapped tags are.
func ValueTypeFromSQL(sqlType string) (ValueType, error) {
	switch sqlType {
	case "TEXT":
		return TypeString, nil
	case "NUMERIC":
		return TypeNumber, nil
	case "JSON":
		return TypeJSON, nil
	case "TEXT[]":
		return TypeStringArray, nil
	case "NUMERIC[]":
		return TypeNumberArray, nil
	case "JSON[]":
		return TypeJSONArray, nil
	}
	return "", fmt.Errorf("no type tag mapping for SQL type %q", sqlType)
}

// Parameter is one declared plugin parameter.
type Parameter struct {
	Name string
	Type ValueType
}

// Metadata is a plugin's self-declared calling contract, produced fresh by
// the plugin's metadata export on every query. The bridge consumes it once
// during synthesis and does not persist it.
type Metadata struct {
	// EntryPoint names the exported function a synthesized caller invokes.
	EntryPoint string
	// Parameters is ordered by name. Plugins declare parameters as a JSON
	// object keyed by name, so uniqueness is structural; the sort makes
	// iteration deterministic.
	Parameters []Parameter
	// ReturnType is the declared type of the final result.
	ReturnType ValueType
	// ReturnField names the key in the plugin's JSON response that holds
	// the returned value.
	ReturnField string
}

// wireMetadata is the JSON shape plugins emit.
type wireMetadata struct {
	EntryPoint  string               `json:"entryPoint"`
	Parameters  map[string]ValueType `json:"parameters"`
	ReturnType  ValueType            `json:"returnType"`
	ReturnField string               `json:"returnField"`
}

// Decode parses metadata bytes returned by a plugin. Callers should run
// ValidateRaw first; Decode still rejects unknown type tags on its own.
func Decode(data []byte) (*Metadata, error) {
	var wire wireMetadata
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(wire.Parameters))
	for name := range wire.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]Parameter, 0, len(names))
	for _, name := range names {
		params = append(params, Parameter{Name: name, Type: wire.Parameters[name]})
	}

	return &Metadata{
		EntryPoint:  wire.EntryPoint,
		Parameters:  params,
		ReturnType:  wire.ReturnType,
		ReturnField: wire.ReturnField,
	}, nil
}

// MarshalJSON emits the plugin wire format. It exists so test plugins and
// tooling can produce metadata the same way real plugins do.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	wire := wireMetadata{
		EntryPoint:  m.EntryPoint,
		Parameters:  make(map[string]ValueType, len(m.Parameters)),
		ReturnType:  m.ReturnType,
		ReturnField: m.ReturnField,
	}
	for _, p := range m.Parameters {
		wire.Parameters[p.Name] = p.Type
	}
	return json.Marshal(wire)
}

// Parameter returns the declared parameter with the given name.
func (m *Metadata) Parameter(name string) (Parameter, bool) {
	for _, p := range m.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}
