package contract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// metadataSchema is the strict schema plugin metadata must satisfy before
// any of it is decoded or embedded in generated SQL. Metadata comes from
// untrusted modules, so unknown fields, empty names and foreign type tags
// are all rejected up front.
const metadataSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["entryPoint", "parameters", "returnType", "returnField"],
  "additionalProperties": false,
  "properties": {
    "entryPoint": {"type": "string", "minLength": 1},
    "parameters": {
      "type": "object",
      "propertyNames": {"minLength": 1},
      "additionalProperties": {
        "enum": ["String", "Number", "Json", "StringArray", "NumberArray", "JsonArray"]
      }
    },
    "returnType": {
      "enum": ["String", "Number", "Json", "StringArray", "NumberArray", "JsonArray"]
    },
    "returnField": {"type": "string", "minLength": 1}
  }
}`

var compiledSchema = jsonschema.MustCompileString("metadata.schema.json", metadataSchema)

// ValidateRaw checks raw metadata bytes against the contract schema.
func ValidateRaw(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("metadata is not valid JSON: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("metadata does not match contract schema: %w", err)
	}
	return nil
}

// identifierPattern is the subset of SQL identifiers the bridge accepts for
// exposed function names and parameter names. Anything else could change
// the meaning of generated SQL, so it is rejected rather than quoted into
// submission.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedIdentifiers are words that are legal by syntax but collide with
// SQL keywords in function signatures.
var reservedIdentifiers = map[string]bool{
	"all": true, "and": true, "any": true, "as": true, "begin": true,
	"case": true, "create": true, "declare": true, "default": true,
	"delete": true, "drop": true, "else": true, "end": true, "false": true,
	"from": true, "function": true, "insert": true, "into": true,
	"not": true, "null": true, "or": true, "replace": true, "returns": true,
	"select": true, "table": true, "then": true, "true": true, "union": true,
	"update": true, "values": true, "when": true, "where": true,
}

// maxIdentifierLength mirrors the common engine limit (PostgreSQL NAMEDATALEN).
const maxIdentifierLength = 63

// ValidIdentifier reports whether name is usable as a function or parameter
// identifier in generated SQL.
func ValidIdentifier(name string) bool {
	if len(name) == 0 || len(name) > maxIdentifierLength {
		return false
	}
	if !identifierPattern.MatchString(name) {
		return false
	}
	return !reservedIdentifiers[strings.ToLower(name)]
}
