package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/plugsql/plugsql/contract"
)

// envelopeValue converts a driver value into the shape the call envelope
// declares for the parameter. SQLite has no array or document columns, so
// Json and array parameters arrive as JSON text and are decoded here; a
// value that cannot fit the declared type fails the call before the
// sandbox is ever touched.
func envelopeValue(v driver.Value, t contract.ValueType) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch t {
	case contract.TypeString:
		return stringValue(v)
	case contract.TypeNumber:
		switch n := v.(type) {
		case int64:
			return float64(n), nil
		case float64:
			return n, nil
		}
		return nil, fmt.Errorf("expected a number, got %T", v)
	case contract.TypeJSON, contract.TypeStringArray, contract.TypeNumberArray, contract.TypeJSONArray:
		text, err := stringValue(v)
		if err != nil {
			return nil, err
		}
		var decoded any
		if err := json.Unmarshal([]byte(text), &decoded); err != nil {
			return nil, fmt.Errorf("expected JSON for %s parameter: %w", t, err)
		}
		return decoded, nil
	}
	return nil, fmt.Errorf("no envelope mapping for tag %q", string(t))
}

func stringValue(v driver.Value) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return "", fmt.Errorf("expected text, got %T", v)
}

// columnValue converts a body result into a driver value for the declared
// return type. Document and array results are stored as JSON text.
func columnValue(result any, t contract.ValueType) (driver.Value, error) {
	if result == nil {
		return nil, nil
	}

	switch t {
	case contract.TypeString:
		s, ok := result.(string)
		if !ok {
			return nil, fmt.Errorf("body returned %T for a String function", result)
		}
		return s, nil
	case contract.TypeNumber:
		n, ok := result.(float64)
		if !ok {
			return nil, fmt.Errorf("body returned %T for a Number function", result)
		}
		return n, nil
	case contract.TypeJSON, contract.TypeStringArray, contract.TypeNumberArray, contract.TypeJSONArray:
		if raw, ok := result.(json.RawMessage); ok {
			return string(raw), nil
		}
		encoded, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encoding %s result: %w", t, err)
		}
		return string(encoded), nil
	}
	return nil, fmt.Errorf("no column mapping for tag %q", string(t))
}
