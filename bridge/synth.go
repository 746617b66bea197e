package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/plugsql/plugsql/catalog"
	"github.com/plugsql/plugsql/contract"
)

// Synthesize turns validated plugin metadata into an installable function
// definition. The signature is derived from the declared parameters, each
// mapped through the contract's type table; the bound body builds the call
// envelope by parameter name, invokes the plugin through inv, extracts the
// declared return field and converts it to the declared type.
//
// Identifiers are re-validated here even though Resolve already checked
// them: this is the boundary where metadata becomes a definition, and
// nothing unvalidated may cross it.
func Synthesize(locator, exposedName string, md *contract.Metadata, inv *Invoker) (*catalog.Definition, error) {
	if !contract.ValidIdentifier(exposedName) {
		return nil, fmt.Errorf("exposed name %q is not a valid identifier", exposedName)
	}

	params := make([]catalog.Param, 0, len(md.Parameters))
	seen := make(map[string]bool, len(md.Parameters))
	for _, p := range md.Parameters {
		if !contract.ValidIdentifier(p.Name) {
			return nil, fmt.Errorf("parameter name %q is not a valid identifier", p.Name)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate parameter name %q", p.Name)
		}
		seen[p.Name] = true

		sqlType, err := p.Type.SQLType()
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		params = append(params, catalog.Param{Name: p.Name, Type: p.Type, SQLType: sqlType})
	}

	returnSQLType, err := md.ReturnType.SQLType()
	if err != nil {
		return nil, fmt.Errorf("return type: %w", err)
	}

	def := &catalog.Definition{
		Name:          exposedName,
		Locator:       locator,
		EntryPoint:    md.EntryPoint,
		ReturnField:   md.ReturnField,
		Params:        params,
		ReturnType:    md.ReturnType,
		ReturnSQLType: returnSQLType,
	}
	def.Body = bindBody(def, inv)
	return def, nil
}

// bindBody builds the definition's runtime body. The envelope is keyed by
// declared parameter name, so caller-side argument order never matters.
func bindBody(def *catalog.Definition, inv *Invoker) catalog.Body {
	return func(ctx context.Context, args map[string]any) (any, error) {
		envelope := make(map[string]any, len(def.Params))
		for _, p := range def.Params {
			v, ok := args[p.Name]
			if !ok {
				return nil, fmt.Errorf("missing argument %q", p.Name)
			}
			envelope[p.Name] = v
		}

		result, err := inv.Invoke(ctx, def.Locator, def.EntryPoint, envelope)
		if err != nil {
			return nil, err
		}

		field := result.Get(def.ReturnField)
		if !field.Exists() {
			return nil, fmt.Errorf("plugin response has no %q field", def.ReturnField)
		}
		return convertResult(field, def.ReturnType)
	}
}

// convertResult casts the extracted response field to the declared return
// type. Scalars follow SQL cast semantics (numeric text casts to a
// number); arrays must actually be arrays.
func convertResult(field gjson.Result, t contract.ValueType) (any, error) {
	switch t {
	case contract.TypeString:
		if field.IsObject() || field.IsArray() {
			return field.Raw, nil
		}
		return field.String(), nil

	case contract.TypeNumber:
		return resultNumber(field)

	case contract.TypeJSON:
		return json.RawMessage(field.Raw), nil

	case contract.TypeStringArray:
		if !field.IsArray() {
			return nil, fmt.Errorf("expected an array, got %s", field.Type)
		}
		var out []string
		for _, el := range field.Array() {
			out = append(out, el.String())
		}
		return out, nil

	case contract.TypeNumberArray:
		if !field.IsArray() {
			return nil, fmt.Errorf("expected an array, got %s", field.Type)
		}
		var out []float64
		for _, el := range field.Array() {
			n, err := resultNumber(el)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil

	case contract.TypeJSONArray:
		if !field.IsArray() {
			return nil, fmt.Errorf("expected an array, got %s", field.Type)
		}
		var out []json.RawMessage
		for _, el := range field.Array() {
			out = append(out, json.RawMessage(el.Raw))
		}
		return out, nil
	}
	return nil, fmt.Errorf("no result mapping for tag %q", string(t))
}

func resultNumber(field gjson.Result) (float64, error) {
	switch field.Type {
	case gjson.Number:
		return field.Float(), nil
	case gjson.String:
		n, err := strconv.ParseFloat(field.Str, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot cast %q to a number", field.Str)
		}
		return n, nil
	}
	return 0, fmt.Errorf("cannot cast %s to a number", field.Type)
}
